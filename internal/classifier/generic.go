package classifier

import (
	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// Validation describes input rejected before reaching the cluster.
func (b *Builder) Validation(message string, ectx types.ErrorContext, hints ...string) types.ErrorDetails {
	return types.ErrorDetails{
		Kind:        types.ErrorKindValidation,
		Severity:    types.SeverityWarning,
		Message:     message,
		Context:     ectx,
		Suggestions: suggestions(hints...),
	}
}

// Unexpected wraps a failure no other builder recognizes.
func (b *Builder) Unexpected(err error, ectx types.ErrorContext) types.ErrorDetails {
	message := "An unexpected error occurred"
	if err != nil {
		message += ": " + err.Error()
	}
	return types.ErrorDetails{
		Kind:             types.ErrorKindUnexpected,
		Severity:         types.SeverityError,
		Message:          message,
		TechnicalDetails: errText(err),
		Context:          ectx,
		Cause:            types.CauseFrom(err),
		Suggestions: suggestions(
			"Open the logs for the full diagnostic record",
			"If the problem persists, report an issue",
		),
	}
}
