package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alto9/kube9-vscode-sub011/internal/host"
	"github.com/alto9/kube9-vscode-sub011/internal/logsink"
	"github.com/alto9/kube9-vscode-sub011/internal/metrics"
	"github.com/alto9/kube9-vscode-sub011/internal/throttle"
	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// Options configures the Dispatcher behavior.
type Options struct {
	IssueTrackerURL string   // receives "Report Issue" links
	Senders         []Sender // external forwarding channels (webhook, etc.)
	// SweepInterval and SweepMaxAge enable periodic throttle eviction when both are > 0.
	SweepInterval time.Duration
	SweepMaxAge   time.Duration
}

// DefaultOptions returns the defaults: the project issue tracker, no senders,
// and no throttle eviction.
func DefaultOptions() Options {
	return Options{
		IssueTrackerURL: DefaultIssueTrackerURL,
	}
}

// Dispatcher logs, counts, throttles, displays and resolves handled errors.
type Dispatcher struct {
	logger   *zap.Logger
	host     host.Host
	sink     logsink.Sink
	counters *metrics.Counters
	throttle *throttle.Throttle
	issues   *IssueBuilder
	senders  []Sender
	opts     Options
	clock    func() time.Time
	newID    func() string
	mu       sync.Mutex
}

// NewDispatcher creates a Dispatcher. Missing host capabilities fall back to no-ops.
func NewDispatcher(logger *zap.Logger, h host.Host, sink logsink.Sink, counters *metrics.Counters, opts Options) *Dispatcher {
	nop := host.Nop()
	if h.Surface == nil {
		h.Surface = nop.Surface
	}
	if h.Clipboard == nil {
		h.Clipboard = nop.Clipboard
	}
	if h.Opener == nil {
		h.Opener = nop.Opener
	}
	if h.Commands == nil {
		h.Commands = nop.Commands
	}
	if sink == nil {
		sink = logsink.NewChannel(logger, nil)
	}
	if counters == nil {
		counters = metrics.NewCounters()
	}
	return &Dispatcher{
		logger:   logger.Named("dispatcher"),
		host:     h,
		sink:     sink,
		counters: counters,
		throttle: throttle.New(throttle.DefaultWindow),
		issues:   NewIssueBuilder(opts.IssueTrackerURL, h.Metadata),
		senders:  opts.Senders,
		opts:     opts,
		clock:    time.Now,
		newID:    uuid.NewString,
	}
}

// SetClock overrides the time source. Intended for tests.
func (d *Dispatcher) SetClock(clock func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock = clock
}

// Counters returns the metrics the dispatcher records into.
func (d *Dispatcher) Counters() *metrics.Counters { return d.counters }

// Sink returns the diagnostic log sink.
func (d *Dispatcher) Sink() logsink.Sink { return d.sink }

// Throttle returns the notification throttle.
func (d *Dispatcher) Throttle() *throttle.Throttle { return d.throttle }

// Start begins background routines for throttle eviction and external senders. Non-blocking.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.opts.SweepInterval > 0 && d.opts.SweepMaxAge > 0 {
		go d.throttle.Run(ctx, d.opts.SweepInterval, d.opts.SweepMaxAge)
	}
	for _, s := range d.senders {
		s.Start(ctx)
		d.logger.Info("Started external sender", zap.String("sender", s.Name()))
	}
}

// HandleError runs the full pipeline for details. It blocks until the user
// responds to the notification (or dismisses it) and the selected action has
// been resolved. It never returns an error to the caller.
func (d *Dispatcher) HandleError(ctx context.Context, details types.ErrorDetails) {
	if !details.Severity.Valid() {
		d.logger.Debug("Unknown severity, using ERROR", zap.String("severity", string(details.Severity)))
		details.Severity = types.SeverityError
	}

	id, now, allowed := d.record(details)
	if !allowed {
		notificationsTotal.WithLabelValues(string(details.Severity), "throttled").Inc()
		d.logger.Debug("Notification throttled",
			zap.String("kind", string(details.Kind)),
			zap.String("incident_id", id),
		)
		return
	}

	d.sendToExternal(ctx, NewErrorRecord(id, now, details))

	message := FormatMessage(details.Message, details.Context)
	labels := ActionLabels(details)

	selected, err := d.host.Surface.Show(ctx, details.Severity, message, labels)
	if err != nil {
		notificationsTotal.WithLabelValues(string(details.Severity), "failed").Inc()
		d.logger.Warn("Failed to show notification",
			zap.String("incident_id", id),
			zap.Error(err),
		)
		return
	}
	notificationsTotal.WithLabelValues(string(details.Severity), "shown").Inc()

	if selected == "" {
		return
	}
	d.resolve(ctx, details, selected)
}

// record logs, counts and checks the throttle as one atomic step.
func (d *Dispatcher) record(details types.ErrorDetails) (string, time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.newID()
	now := d.clock()
	d.sink.Append(logsink.EntryFromDetails(id, now, details))
	d.counters.Record(details.Kind)
	allowed := d.throttle.Allow(throttle.Key(details.Kind, details.Message), now)
	return id, now, allowed
}

func (d *Dispatcher) now() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clock()
}

// resolve maps the selected label to a custom action or a built-in handler.
func (d *Dispatcher) resolve(ctx context.Context, details types.ErrorDetails, label string) {
	if action, ok := details.Action(label); ok {
		d.runAction(ctx, details, action)
		return
	}

	switch label {
	case LabelViewLogs:
		d.sink.Reveal()
		actionsTotal.WithLabelValues("view_logs", "success").Inc()
	case LabelReportIssue:
		link := d.issues.URL(details, d.now())
		if err := d.host.Opener.Open(ctx, link); err != nil {
			actionsTotal.WithLabelValues("report_issue", "error").Inc()
			d.logger.Warn("Failed to open issue tracker", zap.Error(err))
			return
		}
		actionsTotal.WithLabelValues("report_issue", "success").Inc()
	case LabelCopyDetails:
		if err := d.host.Clipboard.Write(ctx, CopyDetails(details, d.now())); err != nil {
			actionsTotal.WithLabelValues("copy_details", "error").Inc()
			d.logger.Warn("Failed to copy error details", zap.Error(err))
			return
		}
		actionsTotal.WithLabelValues("copy_details", "success").Inc()
	default:
		d.logger.Warn("Selected action has no handler", zap.String("label", label))
	}
}

// runAction invokes a custom action. A failure (error or panic) is handed back
// to the pipeline as a secondary UNEXPECTED warning.
func (d *Dispatcher) runAction(ctx context.Context, details types.ErrorDetails, action types.ErrorAction) {
	err := invoke(ctx, action)
	if err == nil {
		actionsTotal.WithLabelValues("custom", "success").Inc()
		return
	}
	actionsTotal.WithLabelValues("custom", "error").Inc()

	d.HandleError(ctx, types.ErrorDetails{
		Kind:             types.ErrorKindUnexpected,
		Severity:         types.SeverityWarning,
		Message:          fmt.Sprintf("Action %q failed: %v", action.Label, err),
		TechnicalDetails: fmt.Sprintf("While handling %s error: %s", details.Kind, details.Message),
		Context:          details.Context,
		Cause:            types.CauseFrom(err),
	})
}

func invoke(ctx context.Context, action types.ErrorAction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	if action.Run == nil {
		return nil
	}
	return action.Run(ctx)
}

// sendToExternal forwards the record to every sender whose severity filter matches.
// Errors are logged but do not affect the notification.
func (d *Dispatcher) sendToExternal(ctx context.Context, rec ErrorRecord) {
	for _, s := range d.senders {
		if !s.ShouldSend(types.Severity(rec.Severity)) {
			continue
		}
		if err := s.Send(ctx, rec); err != nil {
			d.logger.Error("External sender enqueue failed",
				zap.String("sender", s.Name()),
				zap.Error(err),
			)
		}
	}
}

var (
	instanceMu sync.Mutex
	instance   *Dispatcher
	factory    func() *Dispatcher
)

func defaultFactory() *Dispatcher {
	return NewDispatcher(zap.NewNop(), host.Nop(), logsink.Instance(), metrics.Instance(), DefaultOptions())
}

// SetFactory sets how Instance builds the process-wide Dispatcher. It only
// affects construction after the next Reset (or the first Instance call).
// A nil factory restores the default.
func SetFactory(f func() *Dispatcher) {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	factory = f
}

// Instance returns the process-wide Dispatcher, constructing it on first use.
func Instance() *Dispatcher {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		f := factory
		if f == nil {
			f = defaultFactory
		}
		instance = f()
	}
	return instance
}

// Reset discards the process-wide Dispatcher, metrics and log sink.
// The next Instance call builds fresh ones.
func Reset() {
	instanceMu.Lock()
	instance = nil
	instanceMu.Unlock()
	metrics.Reset()
	logsink.Reset()
}
