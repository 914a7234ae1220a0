package classifier

import (
	"fmt"
	"math"
	"time"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// FormatDuration renders d as "Xms" below one second, "X seconds" below one
// minute and "X minutes" otherwise. Seconds and minutes are rounded, and a
// count that rounds up to 60 seconds is shown as one minute.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if secs := int64(math.Round(float64(ms) / 1000)); secs < 60 {
		return plural(secs, "second")
	}
	return plural(int64(math.Round(float64(ms)/60000)), "minute")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Timeout describes an operation that did not complete within elapsed.
func (b *Builder) Timeout(err error, operation string, elapsed time.Duration, ectx types.ErrorContext, retry Callback) types.ErrorDetails {
	if operation == "" {
		operation = "Operation"
	}

	actions := b.retryAction(retry)
	actions = append(actions, b.commandAction(LabelOpenSettings, SettingsCommand))

	return types.ErrorDetails{
		Kind:             types.ErrorKindTimeout,
		Severity:         types.SeverityWarning,
		Message:          fmt.Sprintf("%s timed out after %s", operation, FormatDuration(elapsed)),
		TechnicalDetails: errText(err),
		Context:          ectx,
		Cause:            types.CauseFrom(err),
		Suggestions: suggestions(
			"The cluster may be slow or under heavy load",
			"Check your network connection to the cluster",
			"Increase the request timeout in settings",
		),
		Actions: actions,
	}
}
