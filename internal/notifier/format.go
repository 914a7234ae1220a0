package notifier

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
	"github.com/alto9/kube9-vscode-sub011/internal/util"
)

// Built-in action labels.
const (
	LabelViewLogs    = "View Logs"
	LabelReportIssue = "Report Issue"
	LabelCopyDetails = "Copy Error Details"
)

// FormatMessage appends the context fragments to base in the fixed order
// Cluster, Namespace, Resource. Absent fragments are omitted.
func FormatMessage(base string, c types.ErrorContext) string {
	var parts []string
	if v := c.Cluster(); v != "" {
		parts = append(parts, "Cluster: "+v)
	}
	if v := c.Namespace(); v != "" {
		parts = append(parts, "Namespace: "+v)
	}
	if r := resourceFragment(c); r != "" {
		parts = append(parts, "Resource: "+r)
	}
	if len(parts) == 0 {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, strings.Join(parts, ", "))
}

func resourceFragment(c types.ErrorContext) string {
	rt, rn := c.ResourceType(), c.ResourceName()
	switch {
	case rt != "" && rn != "":
		return rt + "/" + rn
	case rt != "":
		return rt
	default:
		return rn
	}
}

// ActionLabels returns the labels offered for details: custom actions in
// order, then "View Logs", "Report Issue" for UNEXPECTED errors, and
// "Copy Error Details" last. Labels repeated by a custom action appear once.
func ActionLabels(details types.ErrorDetails) []string {
	labels := make([]string, 0, len(details.Actions)+3)
	for _, a := range details.Actions {
		labels = append(labels, a.Label)
	}
	labels = append(labels, LabelViewLogs)
	if details.Kind == types.ErrorKindUnexpected {
		labels = append(labels, LabelReportIssue)
	}
	labels = append(labels, LabelCopyDetails)
	return util.UniqueStrings(labels)
}

// CopyDetails renders the clipboard block. Field order is fixed:
// Error Type, Severity, Message, Timestamp, then Status Code, Context,
// Technical Details and Stack Trace when present.
func CopyDetails(details types.ErrorDetails, now time.Time) string {
	lines := []string{
		"Error Type: " + string(details.Kind),
		"Severity: " + string(details.Severity),
		"Message: " + details.Message,
		"Timestamp: " + now.UTC().Format(time.RFC3339),
	}
	if details.StatusCode != 0 {
		lines = append(lines, fmt.Sprintf("Status Code: %d", details.StatusCode))
	}
	if len(details.Context) > 0 {
		if data, err := json.MarshalIndent(details.Context, "", "  "); err == nil {
			lines = append(lines, "Context: "+string(data))
		}
	}
	if details.TechnicalDetails != "" {
		lines = append(lines, "Technical Details: "+details.TechnicalDetails)
	}
	if details.Cause != nil && details.Cause.Stack != "" {
		lines = append(lines, "Stack Trace:\n"+details.Cause.Stack)
	}
	return strings.Join(lines, "\n")
}
