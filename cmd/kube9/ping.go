package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alto9/kube9-vscode-sub011/internal/metrics"
)

func pingCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the API server is reachable",
		Long: `Ping requests the API server version. A failure is classified
and shown with remediation actions such as Retry and Open Kubeconfig.

Examples:
  # Ping the current context
  kube9 ping

  # Ping a different kubeconfig and print JSON
  kube9 ping --kubeconfig ~/.kube/staging -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPing(cmd, global)
		},
	}
	return cmd
}

func runPing(cmd *cobra.Command, global *globalOptions) error {
	a, err := setup(cmd, global)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	result := PingResult{Cluster: currentClusterFunc(a.cfg.Kubeconfig)}

	start := time.Now()
	gitVersion, platform, err := serverVersion(a.cfg.Kubeconfig)
	result.ElapsedMS = time.Since(start).Milliseconds()

	if err != nil {
		op := operation{
			Name:     "Connect to API server",
			Verb:     "get",
			Resource: "/version",
			Cluster:  result.Cluster,
			Elapsed:  time.Since(start),
		}
		retry := func(context.Context) error {
			_, _, err := serverVersion(a.cfg.Kubeconfig)
			return err
		}
		a.dispatcher.HandleError(ctx, classify(a.builder, err, op, retry))
	} else {
		result.Reachable = true
		result.Version = gitVersion
		result.Platform = platform
		a.logger.Debug("API server reachable", zap.String("version", gitVersion))
	}
	result.Errors = metrics.Instance().Summary()

	return outputResult(cmd.OutOrStdout(), result, global.output)
}

func serverVersion(kubeconfig string) (string, string, error) {
	client, err := getClientsetFunc(kubeconfig)
	if err != nil {
		return "", "", err
	}
	info, err := client.Discovery().ServerVersion()
	if err != nil {
		return "", "", err
	}
	return info.GitVersion, info.Platform, nil
}
