// kube9 is a CLI that exercises the kube9 error pipeline against a cluster.
//
// Usage:
//
//	kube9 ping
//	kube9 probe --resource pods -n default
//	kube9 probe --resource deployments.apps --name api --repeat 5 --qps 2
//	kube9 simulate --kind TIMEOUT --count 3 --interval 100ms
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alto9/kube9-vscode-sub011/internal/config"
)

var version = "dev"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	output         string
	configPath     string
	kubeconfig     string
	logLevel       string
	nonInteractive bool
	webhookURL     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "kube9",
		Short: "Classify, throttle and surface Kubernetes errors",
		Long: `kube9 runs Kubernetes operations through the kube9 error pipeline.

Failures are classified (connection, RBAC, not found, timeout, API),
logged to the diagnostic log, counted, throttled and shown with
remediation actions.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.output, "output", "o", "table", "Output format: table, json, yaml")
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.kubeconfig, "kubeconfig", "", "Path to the kubeconfig file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVar(&opts.nonInteractive, "non-interactive", false, "Use the line prompt instead of the interactive menu")
	flags.StringVar(&opts.webhookURL, "webhook-url", "", "Forward displayed errors to this webhook")

	rootCmd.AddCommand(pingCmd(opts))
	rootCmd.AddCommand(probeCmd(opts))
	rootCmd.AddCommand(simulateCmd(opts))
	return rootCmd
}

// loadConfig reads the config file and environment, then applies flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command, opts *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("kubeconfig") {
		cfg.Kubeconfig = opts.kubeconfig
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("non-interactive") {
		cfg.Interactive = !opts.nonInteractive
	}
	if flags.Changed("webhook-url") {
		cfg.Webhook.URL = opts.webhookURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads configuration and wires the error pipeline for a subcommand.
func setup(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return nil, err
	}
	a, err := newApp(cmd.Context(), cfg, logger.Named("kube9"), cmd.OutOrStdout())
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	logger.Debug("Pipeline ready", zap.String("version", version), zap.Bool("interactive", cfg.Interactive))
	return a, nil
}
