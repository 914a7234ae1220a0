// Package notifier is the single funnel every subsystem hands classified
// failures to. It turns them into a small, non-spammy set of actionable
// notifications while keeping a full diagnostic record.
//
// # Contract
//
// Dispatcher.HandleError runs a fixed pipeline:
//  1. Log: append an entry to the diagnostic log sink (always)
//  2. Count: increment the per-kind counter (always)
//  3. Throttle: suppress display if the same "KIND:message" was shown less
//     than 5s ago; steps 1-3 run under one lock
//  4. Format: append "(Cluster: x, Namespace: y, Resource: Type/Name)"
//  5. Assemble actions: custom labels, "View Logs", "Report Issue" (UNEXPECTED
//     only), "Copy Error Details"
//  6. Display on the severity's channel and wait for a selection
//  7. Resolve: custom action, reveal log, open issue URL, or copy details
//
// A failing custom action is reported as a secondary UNEXPECTED warning
// through the same pipeline instead of propagating.
//
// Notifications that pass the throttle are also forwarded to any configured
// Sender (e.g. WebhookSender) at or above its minimum severity.
//
// # Lifecycle
//
// Instance returns the process-wide Dispatcher, built on first use by the
// configured factory. Reset discards it together with the metrics counters
// and the log sink. Pending notifications are not cancelled by Reset.
//
// # Types
//
//	type Dispatcher struct { ... }
//	func NewDispatcher(logger *zap.Logger, h host.Host, sink logsink.Sink, counters *metrics.Counters, opts Options) *Dispatcher
//	func (d *Dispatcher) HandleError(ctx context.Context, details types.ErrorDetails)
//	func FormatMessage(base string, c types.ErrorContext) string
//	func ActionLabels(details types.ErrorDetails) []string
//	func CopyDetails(details types.ErrorDetails, now time.Time) string
package notifier
