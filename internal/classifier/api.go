package classifier

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// APIFailure is a non-success response from the Kubernetes API.
type APIFailure struct {
	StatusCode int
	// Body is the decoded or raw response body; it is serialized into the
	// technical details of generic API errors.
	Body    any
	Headers http.Header
	Err     error

	// Access and Resource feed the 403 and 404 routes.
	Access   Access
	Resource Resource
}

// RetryAfter returns the raw Retry-After header value.
func (f APIFailure) RetryAfter() string {
	if f.Headers == nil {
		return ""
	}
	return strings.TrimSpace(f.Headers.Get("Retry-After"))
}

// APIOptions carries the caller callbacks used by the routed builders.
type APIOptions struct {
	Retry   Callback
	Refresh Callback
}

// API routes f to the builder matching its status code.
func (b *Builder) API(f APIFailure, ectx types.ErrorContext, opts APIOptions) types.ErrorDetails {
	switch code := f.StatusCode; {
	case code == http.StatusUnauthorized:
		return b.unauthorized(f, ectx)
	case code == http.StatusForbidden:
		return b.RBAC(f.Err, f.Access, ectx)
	case code == http.StatusNotFound:
		return b.NotFound(f.Err, f.Resource, ectx, opts.Refresh)
	case code == http.StatusConflict:
		return b.conflict(f, ectx, opts.Refresh)
	case code == http.StatusTooManyRequests:
		return b.rateLimited(f, ectx, opts.Retry)
	case code >= http.StatusInternalServerError:
		return b.serverError(f, ectx, opts.Retry)
	default:
		return b.genericAPI(f, ectx)
	}
}

func (b *Builder) unauthorized(f APIFailure, ectx types.ErrorContext) types.ErrorDetails {
	return types.ErrorDetails{
		Kind:             types.ErrorKindAPI,
		Severity:         types.SeverityError,
		Message:          "Authentication failed: the cluster rejected your credentials",
		TechnicalDetails: errText(f.Err),
		Context:          ectx,
		Cause:            types.CauseFrom(f.Err),
		StatusCode:       f.StatusCode,
		Suggestions: suggestions(
			"Your credentials or token may have expired; log in to your cluster provider again",
			"Verify the user configured for the current context in your kubeconfig",
		),
		Actions: []types.ErrorAction{b.openKubeconfigAction()},
	}
}

func (b *Builder) conflict(f APIFailure, ectx types.ErrorContext, refresh Callback) types.ErrorDetails {
	return types.ErrorDetails{
		Kind:             types.ErrorKindAPI,
		Severity:         types.SeverityWarning,
		Message:          "Conflict: the resource was modified by someone else",
		TechnicalDetails: errText(f.Err),
		Context:          ectx,
		Cause:            types.CauseFrom(f.Err),
		StatusCode:       f.StatusCode,
		Suggestions: suggestions(
			"Refresh to load the latest version of the resource and try again",
		),
		Actions: []types.ErrorAction{b.refreshAction(refresh)},
	}
}

func (b *Builder) rateLimited(f APIFailure, ectx types.ErrorContext, retry Callback) types.ErrorDetails {
	wait := "Wait a moment before retrying"
	if ra := f.RetryAfter(); ra != "" {
		if _, err := strconv.Atoi(ra); err == nil {
			wait = fmt.Sprintf("Wait %s seconds before retrying", ra)
		} else {
			wait = fmt.Sprintf("Retry after %s", ra)
		}
	}
	return types.ErrorDetails{
		Kind:             types.ErrorKindAPI,
		Severity:         types.SeverityWarning,
		Message:          "Rate limited: too many requests to the Kubernetes API server",
		TechnicalDetails: errText(f.Err),
		Context:          ectx,
		Cause:            types.CauseFrom(f.Err),
		StatusCode:       f.StatusCode,
		Suggestions: suggestions(
			wait,
			"Reduce how often views refresh automatically",
		),
		Actions: b.retryAction(retry),
	}
}

func (b *Builder) serverError(f APIFailure, ectx types.ErrorContext, retry Callback) types.ErrorDetails {
	return types.ErrorDetails{
		Kind:             types.ErrorKindAPI,
		Severity:         types.SeverityError,
		Message:          fmt.Sprintf("Kubernetes API server error (%d)", f.StatusCode),
		TechnicalDetails: joinDetails(errText(f.Err), serializeBody(f.Body)),
		Context:          ectx,
		Cause:            types.CauseFrom(f.Err),
		StatusCode:       f.StatusCode,
		Suggestions: suggestions(
			"The API server or one of its dependencies is unhealthy; retry in a moment",
			"Check the control plane status with your cluster provider",
		),
		Actions: b.retryAction(retry),
	}
}

func (b *Builder) genericAPI(f APIFailure, ectx types.ErrorContext) types.ErrorDetails {
	return types.ErrorDetails{
		Kind:             types.ErrorKindAPI,
		Severity:         types.SeverityError,
		Message:          fmt.Sprintf("API request failed with status %d", f.StatusCode),
		TechnicalDetails: joinDetails(fmt.Sprintf("Status: %d", f.StatusCode), serializeBody(f.Body), errText(f.Err)),
		Context:          ectx,
		Cause:            types.CauseFrom(f.Err),
		StatusCode:       f.StatusCode,
	}
}

func serializeBody(body any) string {
	switch v := body.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func joinDetails(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
