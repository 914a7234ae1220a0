package notifier

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alto9/kube9-vscode-sub011/internal/host"
	"github.com/alto9/kube9-vscode-sub011/internal/types"
	"github.com/alto9/kube9-vscode-sub011/internal/util"
)

// DefaultIssueTrackerURL is the repository that receives bug reports.
const DefaultIssueTrackerURL = "https://github.com/alto9/kube9-vscode"

const issueTitleLength = 50

// IssueBuilder turns an error into a pre-filled "new issue" link.
type IssueBuilder struct {
	trackerURL string
	meta       host.Metadata
}

// NewIssueBuilder creates an IssueBuilder for the tracker at trackerURL.
func NewIssueBuilder(trackerURL string, meta host.Metadata) *IssueBuilder {
	if trackerURL == "" {
		trackerURL = DefaultIssueTrackerURL
	}
	return &IssueBuilder{
		trackerURL: strings.TrimSuffix(trackerURL, "/"),
		meta:       meta,
	}
}

// Title returns the issue title with the message cut to 50 characters.
func (b *IssueBuilder) Title(d types.ErrorDetails) string {
	return fmt.Sprintf("[%s] %s", d.Kind, util.Truncate(d.Message, issueTitleLength))
}

// Body returns the markdown issue body.
func (b *IssueBuilder) Body(d types.ErrorDetails, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("## Error Details\n\n")
	fmt.Fprintf(&sb, "- **Type:** %s\n", d.Kind)
	fmt.Fprintf(&sb, "- **Severity:** %s\n", d.Severity)
	fmt.Fprintf(&sb, "- **Message:** %s\n", d.Message)
	if d.StatusCode != 0 {
		fmt.Fprintf(&sb, "- **Status Code:** %d\n", d.StatusCode)
	}
	fmt.Fprintf(&sb, "- **Timestamp:** %s\n", now.UTC().Format(time.RFC3339))

	if d.TechnicalDetails != "" {
		sb.WriteString("\n## Technical Details\n\n```\n")
		sb.WriteString(d.TechnicalDetails)
		sb.WriteString("\n```\n")
	}

	if keys := d.Context.Keys(); len(keys) > 0 {
		sb.WriteString("\n## Context\n\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "- **%s:** %s\n", k, d.Context[k])
		}
	}

	sb.WriteString("\n## Environment\n\n")
	fmt.Fprintf(&sb, "- **Extension Version:** %s\n", orUnknown(b.meta.PackageVersion))
	fmt.Fprintf(&sb, "- **Host Version:** %s\n", orUnknown(b.meta.HostVersion))
	fmt.Fprintf(&sb, "- **Platform:** %s\n", orUnknown(b.meta.Platform))

	if d.Cause != nil && d.Cause.Stack != "" {
		sb.WriteString("\n## Stack Trace\n\n```\n")
		sb.WriteString(d.Cause.Stack)
		sb.WriteString("\n```\n")
	}

	sb.WriteString("\n## Steps to Reproduce\n\n1. \n")
	return sb.String()
}

// URL returns the tracker's new-issue URL with title and body percent-encoded.
func (b *IssueBuilder) URL(d types.ErrorDetails, now time.Time) string {
	return fmt.Sprintf("%s/issues/new?title=%s&body=%s",
		b.trackerURL,
		encodeComponent(b.Title(d)),
		encodeComponent(b.Body(d, now)),
	)
}

// encodeComponent percent-encodes s, using %20 for spaces.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
