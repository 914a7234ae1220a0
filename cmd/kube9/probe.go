package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"

	"github.com/alto9/kube9-vscode-sub011/internal/metrics"
)

type probeOptions struct {
	resource    string
	apiVersion  string
	namespace   string
	name        string
	repeat      int
	qps         float64
	timeout     time.Duration
	metricsAddr string
}

func probeCmd(global *globalOptions) *cobra.Command {
	opts := &probeOptions{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "List or get a resource and report classified failures",
		Long: `Probe lists (or gets, with --name) a resource through the dynamic client.
Every failure is classified and handed to the error pipeline.

Examples:
  # List pods in the default namespace
  kube9 probe --resource pods -n default

  # Get a deployment five times, two requests per second
  kube9 probe --resource deployments.apps --name api -n prod --repeat 5 --qps 2

  # Expose Prometheus metrics while probing
  kube9 probe --resource nodes --repeat 100 --qps 1 --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.resource, "resource", "", "Resource to probe, e.g. pods, deployments.apps, deployments.v1.apps")
	cmd.Flags().StringVar(&opts.apiVersion, "api-version", "v1", "Version used when --resource does not name one")
	cmd.Flags().StringVarP(&opts.namespace, "namespace", "n", "", "Namespace (empty for all namespaces or cluster-scoped resources)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Object name; gets a single object instead of listing")
	cmd.Flags().IntVar(&opts.repeat, "repeat", 1, "Number of attempts")
	cmd.Flags().Float64Var(&opts.qps, "qps", 0, "Maximum attempts per second (0 for no limit)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Timeout for each attempt")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while probing")
	_ = cmd.MarkFlagRequired("resource")

	return cmd
}

func runProbe(cmd *cobra.Command, global *globalOptions, opts *probeOptions) error {
	if opts.repeat < 1 {
		return fmt.Errorf("--repeat must be at least 1")
	}
	if opts.qps < 0 {
		return fmt.Errorf("--qps must not be negative")
	}
	gvr, err := resolveGVR(opts.resource, opts.apiVersion)
	if err != nil {
		return err
	}

	a, err := setup(cmd, global)
	if err != nil {
		return err
	}
	defer a.Close()

	metricsAddr := opts.metricsAddr
	if metricsAddr == "" {
		metricsAddr = a.cfg.Metrics.Addr
	}
	a.serveMetrics(metricsAddr)

	ctx := cmd.Context()
	p := &prober{
		app:     a,
		gvr:     gvr,
		opts:    opts,
		cluster: currentClusterFunc(a.cfg.Kubeconfig),
	}

	limit := rate.Inf
	if opts.qps > 0 {
		limit = rate.Limit(opts.qps)
	}
	limiter := rate.NewLimiter(limit, 1)

	result := ProbeResult{
		Resource:  gvr.String(),
		Namespace: opts.namespace,
		Name:      opts.name,
	}
	for range opts.repeat {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		result.Attempts++
		items, ok := p.attempt(ctx)
		if ok {
			result.Succeeded++
			result.Items = items
		} else {
			result.Failed++
		}
	}
	result.Errors = metrics.Instance().Summary()

	return outputResult(cmd.OutOrStdout(), result, global.output)
}

// prober runs one resource request and routes its failure.
type prober struct {
	*app
	gvr     schema.GroupVersionResource
	opts    *probeOptions
	cluster string
}

func (p *prober) operation() operation {
	op := operation{
		Verb:      "list",
		Resource:  p.gvr.GroupResource().String(),
		Kind:      p.gvr.Resource,
		Namespace: p.opts.namespace,
		Cluster:   p.cluster,
	}
	if p.opts.name != "" {
		op.Verb = "get"
		op.Object = p.opts.name
	}
	op.Name = fmt.Sprintf("%s %s", verbTitle(op.Verb), op.Resource)
	return op
}

// attempt performs the request; on failure the classified error is handed
// to the dispatcher and ok is false.
func (p *prober) attempt(ctx context.Context) (items int, ok bool) {
	start := time.Now()
	items, err := p.do(ctx)
	if err == nil {
		p.logger.Debug("Probe succeeded", zap.String("resource", p.gvr.String()), zap.Int("items", items))
		return items, true
	}

	op := p.operation()
	op.Elapsed = time.Since(start)
	retry := func(ctx context.Context) error {
		_, err := p.do(ctx)
		if err == nil {
			fmt.Fprintf(p.out, "%s succeeded on retry\n", op.Name)
		}
		return err
	}
	p.dispatcher.HandleError(ctx, classify(p.builder, err, op, retry))
	return 0, false
}

func (p *prober) do(ctx context.Context) (int, error) {
	client, err := getDynamicClientFunc(p.cfg.Kubeconfig)
	if err != nil {
		return 0, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.opts.timeout)
	defer cancel()

	var ri dynamic.ResourceInterface = client.Resource(p.gvr)
	if p.opts.namespace != "" {
		ri = client.Resource(p.gvr).Namespace(p.opts.namespace)
	}
	if p.opts.name != "" {
		if _, err := ri.Get(reqCtx, p.opts.name, metav1.GetOptions{}); err != nil {
			return 0, err
		}
		return 1, nil
	}
	list, err := ri.List(reqCtx, metav1.ListOptions{})
	if err != nil {
		return 0, err
	}
	return len(list.Items), nil
}

func verbTitle(verb string) string {
	if verb == "" {
		return ""
	}
	return string(verb[0]-'a'+'A') + verb[1:]
}
