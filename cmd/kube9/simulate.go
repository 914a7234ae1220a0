package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alto9/kube9-vscode-sub011/internal/classifier"
	"github.com/alto9/kube9-vscode-sub011/internal/metrics"
	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

type simulateOptions struct {
	kind       string
	severity   string
	message    string
	statusCode int
	cluster    string
	namespace  string
	count      int
	interval   time.Duration
}

func simulateCmd(global *globalOptions) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Feed synthetic errors through the pipeline",
		Long: `Simulate hands synthetic errors to the dispatcher without a cluster.
Without --message the classifier for --kind builds a realistic error
with its default actions; with --message the error is passed as-is.

Examples:
  # Two identical timeouts 100ms apart: one notification, count 2
  kube9 simulate --kind TIMEOUT --count 2 --interval 100ms

  # A custom warning with cluster context
  kube9 simulate --kind API --severity WARNING --message "List failed" --cluster prod -n default`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", string(types.ErrorKindUnexpected), "Error kind: "+kindList())
	cmd.Flags().StringVar(&opts.severity, "severity", "", "Override severity: ERROR, WARNING, INFO")
	cmd.Flags().StringVar(&opts.message, "message", "", "Message to send as-is")
	cmd.Flags().IntVar(&opts.statusCode, "status-code", 0, "HTTP status for API errors")
	cmd.Flags().StringVar(&opts.cluster, "cluster", "", "Cluster context value")
	cmd.Flags().StringVarP(&opts.namespace, "namespace", "n", "", "Namespace context value")
	cmd.Flags().IntVar(&opts.count, "count", 1, "Number of errors to send")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Delay between errors")

	return cmd
}

func kindList() string {
	kinds := make([]string, 0, len(types.AllErrorKinds))
	for _, k := range types.AllErrorKinds {
		kinds = append(kinds, string(k))
	}
	return strings.Join(kinds, ", ")
}

func runSimulate(cmd *cobra.Command, global *globalOptions, opts *simulateOptions) error {
	kind := types.ErrorKind(strings.ToUpper(opts.kind))
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q: must be one of %s", opts.kind, kindList())
	}
	severity := types.Severity(strings.ToUpper(opts.severity))
	if severity != "" && !severity.Valid() {
		return fmt.Errorf("unknown severity %q", opts.severity)
	}
	if opts.count < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	a, err := setup(cmd, global)
	if err != nil {
		return err
	}
	defer a.Close()

	details := syntheticDetails(a.builder, kind, opts)
	if severity != "" {
		details.Severity = severity
	}

	ctx := cmd.Context()
	before := a.surface.Shown()
	result := SimulateResult{
		Kind:     string(details.Kind),
		Severity: string(details.Severity),
		Message:  details.Message,
	}
	for i := range opts.count {
		if i > 0 && opts.interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.interval):
			}
		}
		a.dispatcher.HandleError(ctx, details)
		result.Sent++
	}
	result.Throttled = result.Sent - (a.surface.Shown() - before)
	result.Errors = metrics.Instance().Summary()

	return outputResult(cmd.OutOrStdout(), result, global.output)
}

// syntheticDetails builds the error to send. A blank message selects the
// classifier for kind.
func syntheticDetails(b *classifier.Builder, kind types.ErrorKind, opts *simulateOptions) types.ErrorDetails {
	ectx := types.ErrorContext{}
	if opts.cluster != "" {
		ectx[types.ContextCluster] = opts.cluster
	}
	if opts.namespace != "" {
		ectx[types.ContextNamespace] = opts.namespace
	}

	if opts.message != "" {
		return types.ErrorDetails{
			Kind:       kind,
			Severity:   types.SeverityError,
			Message:    opts.message,
			StatusCode: opts.statusCode,
			Context:    ectx,
		}
	}

	simulated := func(context.Context) error {
		return errors.New("simulated operation failed again")
	}
	switch kind {
	case types.ErrorKindConnection:
		return b.Connection(errors.New("dial tcp 127.0.0.1:6443: connect: connection refused"), ectx, simulated)
	case types.ErrorKindRBAC:
		return b.RBAC(errors.New(`pods is forbidden: User "dev" cannot list resource "pods"`),
			classifier.Access{Verb: "list", Resource: "pods", Namespace: opts.namespace}, ectx)
	case types.ErrorKindNotFound:
		return b.NotFound(errors.New(`pods "web-0" not found`),
			classifier.Resource{Type: "Pod", Name: "web-0", Namespace: opts.namespace}, ectx, nil)
	case types.ErrorKindTimeout:
		return b.Timeout(context.DeadlineExceeded, "List pods", 30*time.Second, ectx, simulated)
	case types.ErrorKindAPI:
		code := opts.statusCode
		if code == 0 {
			code = http.StatusServiceUnavailable
		}
		return b.API(classifier.APIFailure{
			StatusCode: code,
			Body:       map[string]string{"reason": http.StatusText(code)},
			Err:        fmt.Errorf("the server returned HTTP %d", code),
			Access:     classifier.Access{Verb: "list", Resource: "pods", Namespace: opts.namespace},
			Resource:   classifier.Resource{Type: "Pod", Name: "web-0", Namespace: opts.namespace},
		}, ectx, classifier.APIOptions{Retry: simulated})
	case types.ErrorKindValidation:
		return b.Validation("Namespace name must be a lowercase RFC 1123 label", ectx,
			"Use lowercase letters, digits and '-'")
	default:
		return b.Unexpected(errors.New("simulated panic: assignment to entry in nil map"), ectx)
	}
}
