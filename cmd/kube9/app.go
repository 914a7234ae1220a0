package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alto9/kube9-vscode-sub011/internal/classifier"
	"github.com/alto9/kube9-vscode-sub011/internal/config"
	"github.com/alto9/kube9-vscode-sub011/internal/host"
	"github.com/alto9/kube9-vscode-sub011/internal/logsink"
	"github.com/alto9/kube9-vscode-sub011/internal/metrics"
	"github.com/alto9/kube9-vscode-sub011/internal/notifier"
	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// hostVersion is reported as the host version in issue reports.
const hostVersion = "cli"

// newSurfaceFunc creates the notification surface. Overridden in tests.
var newSurfaceFunc = func(cfg *config.Config, _ io.Writer) host.NotificationSurface {
	return host.NewSurface(cfg.Interactive)
}

// app holds the wired error pipeline for one CLI invocation.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	out        io.Writer
	host       host.Host
	surface    *countingSurface
	commands   *host.Commands
	builder    *classifier.Builder
	dispatcher *notifier.Dispatcher
	webhook    *notifier.WebhookSender
	metricsSrv *http.Server
	cancel     context.CancelFunc
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	if cfg.Format == "console" {
		logConfig.Encoding = "console"
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return logConfig.Build()
}

// newApp wires the host, log sink, dispatcher and optional senders from cfg,
// and installs the dispatcher as the process-wide instance.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		commands: host.NewCommands(),
	}
	if err := a.registerCommands(); err != nil {
		return nil, err
	}

	a.surface = &countingSurface{NotificationSurface: newSurfaceFunc(cfg, out)}
	a.host = host.Host{
		Surface:   a.surface,
		Clipboard: host.SystemClipboard{},
		Opener:    host.BrowserOpener{Out: out},
		Commands:  a.commands,
		Metadata:  host.DefaultMetadata(version, hostVersion),
	}
	a.builder = classifier.NewBuilder(a.host.Opener, a.commands, classifier.Options{
		KubeconfigPath: cfg.Kubeconfig,
		DocsURL:        cfg.Docs.URL,
	})

	// Senders are built before the log file is opened.
	var senders []notifier.Sender
	if cfg.Webhook.URL != "" {
		ws, err := notifier.NewWebhookSender(logger, notifier.WebhookSenderConfig{
			URL:                cfg.Webhook.URL,
			TimeoutSeconds:     cfg.Webhook.TimeoutSeconds,
			InsecureSkipVerify: cfg.Webhook.InsecureSkipVerify,
			MinSeverity:        cfg.Webhook.MinSeverity,
			AuthToken:          cfg.Webhook.AuthToken,
			PerMinute:          cfg.Webhook.PerMinute,
		})
		if err != nil {
			return nil, fmt.Errorf("create webhook sender: %w", err)
		}
		a.webhook = ws
		senders = append(senders, ws)
		logger.Info("Webhook sender configured", zap.String("url", notifier.RedactURL(cfg.Webhook.URL)))
	}

	// Start from fresh process-wide state so the sink installed below survives.
	notifier.Reset()

	var sink *logsink.Channel
	if cfg.Log.File != "" {
		var err error
		sink, err = logsink.OpenFile(logger, cfg.Log.File)
		if err != nil {
			return nil, err
		}
	} else {
		sink = logsink.NewChannel(logger, nil)
	}
	sink.SetRevealWriter(out)
	logsink.SetInstance(sink)

	opts := notifier.DefaultOptions()
	opts.IssueTrackerURL = cfg.Issues.URL
	if cfg.SweepEnabled() {
		opts.SweepInterval = cfg.Throttle.SweepInterval
		opts.SweepMaxAge = cfg.Throttle.MaxAge
	}
	opts.Senders = append(opts.Senders, senders...)

	notifier.SetFactory(func() *notifier.Dispatcher {
		return notifier.NewDispatcher(logger, a.host, logsink.Instance(), metrics.Instance(), opts)
	})
	a.dispatcher = notifier.Instance()

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.dispatcher.Start(runCtx)
	return a, nil
}

// countingSurface counts notifications that reached the surface.
type countingSurface struct {
	host.NotificationSurface
	shown atomic.Int64
}

func (s *countingSurface) Show(ctx context.Context, severity types.Severity, message string, labels []string) (string, error) {
	s.shown.Add(1)
	return s.NotificationSurface.Show(ctx, severity, message, labels)
}

// Shown returns how many notifications were displayed.
func (s *countingSurface) Shown() int {
	return int(s.shown.Load())
}

func (a *app) registerCommands() error {
	if err := a.commands.Register(classifier.RefreshCommand, func(context.Context) error {
		fmt.Fprintln(a.out, "Re-run the last kube9 command to refresh cluster data.")
		return nil
	}); err != nil {
		return err
	}
	return a.commands.Register(classifier.SettingsCommand, func(context.Context) error {
		fmt.Fprintln(a.out, "Settings are read from the --config file and KUBE9_* environment variables.")
		return nil
	})
}

// serveMetrics exposes Prometheus metrics on addr until Close.
func (a *app) serveMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("Metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	a.logger.Info("Serving metrics", zap.String("addr", addr))
}

// Close stops background work, drains the webhook queue and disposes the log sink.
func (a *app) Close() {
	if a.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.metricsSrv.Shutdown(shutdownCtx)
		cancel()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.webhook != nil {
		a.webhook.Close()
	}
	if err := a.dispatcher.Sink().Dispose(); err != nil {
		a.logger.Warn("Failed to close diagnostic log", zap.Error(err))
	}
}
