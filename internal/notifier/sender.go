package notifier

import (
	"context"
	"time"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// Sender is the interface for external channels that receive a copy of each
// displayed error (webhook, chat, etc.).
// Each implementation handles its own async delivery, retry logic, and filtering.
type Sender interface {
	// Name returns the sender's identifier (e.g., "webhook").
	Name() string

	// Send delivers an error record to the external channel.
	Send(ctx context.Context, rec ErrorRecord) error

	// ShouldSend returns true if this sender should handle an error at the given severity.
	ShouldSend(severity types.Severity) bool

	// Start begins any background workers. Non-blocking.
	Start(ctx context.Context)
}

// ErrorRecord is the serializable form of a handled error sent to Senders.
type ErrorRecord struct {
	SchemaVersion    string            `json:"schemaVersion"`
	IncidentID       string            `json:"incidentId"`
	Kind             string            `json:"kind"`
	Severity         string            `json:"severity"`
	Message          string            `json:"message"`
	StatusCode       int               `json:"statusCode,omitempty"`
	Context          map[string]string `json:"context,omitempty"`
	TechnicalDetails string            `json:"technicalDetails,omitempty"`
	Suggestions      []string          `json:"suggestions,omitempty"`
	DocumentationURL string            `json:"documentationUrl,omitempty"`
	ObservedAt       string            `json:"observedAt"`
}

// NewErrorRecord builds the record for d observed at now.
func NewErrorRecord(incidentID string, now time.Time, d types.ErrorDetails) ErrorRecord {
	return ErrorRecord{
		SchemaVersion:    "1",
		IncidentID:       incidentID,
		Kind:             string(d.Kind),
		Severity:         string(d.Severity),
		Message:          d.Message,
		StatusCode:       d.StatusCode,
		Context:          d.Context,
		TechnicalDetails: d.TechnicalDetails,
		Suggestions:      d.Suggestions,
		DocumentationURL: d.DocumentationURL,
		ObservedAt:       now.UTC().Format(time.RFC3339),
	}
}
