package classifier

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

func TestAPI_Routing(t *testing.T) {
	b, _ := newTestBuilder(t)
	noop := func(context.Context) error { return nil }
	opts := APIOptions{Retry: noop, Refresh: noop}

	tests := []struct {
		name         string
		failure      APIFailure
		wantKind     types.ErrorKind
		wantSeverity types.Severity
		wantLabels   []string
		wantMessage  string
	}{
		{
			name:         "401 unauthorized",
			failure:      APIFailure{StatusCode: 401},
			wantKind:     types.ErrorKindAPI,
			wantSeverity: types.SeverityError,
			wantLabels:   []string{LabelOpenKubeconfig},
			wantMessage:  "Authentication failed: the cluster rejected your credentials",
		},
		{
			name:         "403 delegates to RBAC",
			failure:      APIFailure{StatusCode: 403, Access: Access{Verb: "delete", Resource: "secrets", Namespace: "prod"}},
			wantKind:     types.ErrorKindRBAC,
			wantSeverity: types.SeverityError,
			wantLabels:   []string{LabelViewDocs},
			wantMessage:  "Permission denied: Cannot delete secrets in namespace prod",
		},
		{
			name:         "404 delegates to NotFound",
			failure:      APIFailure{StatusCode: 404, Resource: Resource{Type: "Service", Name: "api"}},
			wantKind:     types.ErrorKindNotFound,
			wantSeverity: types.SeverityWarning,
			wantLabels:   []string{LabelRefresh},
			wantMessage:  `Service "api" not found`,
		},
		{
			name:         "409 conflict",
			failure:      APIFailure{StatusCode: 409},
			wantKind:     types.ErrorKindAPI,
			wantSeverity: types.SeverityWarning,
			wantLabels:   []string{LabelRefresh},
			wantMessage:  "Conflict: the resource was modified by someone else",
		},
		{
			name:         "429 rate limited",
			failure:      APIFailure{StatusCode: 429},
			wantKind:     types.ErrorKindAPI,
			wantSeverity: types.SeverityWarning,
			wantLabels:   []string{LabelRetry},
			wantMessage:  "Rate limited: too many requests to the Kubernetes API server",
		},
		{
			name:         "500 server error",
			failure:      APIFailure{StatusCode: 500},
			wantKind:     types.ErrorKindAPI,
			wantSeverity: types.SeverityError,
			wantLabels:   []string{LabelRetry},
			wantMessage:  "Kubernetes API server error (500)",
		},
		{
			name:         "503 server error",
			failure:      APIFailure{StatusCode: 503},
			wantKind:     types.ErrorKindAPI,
			wantSeverity: types.SeverityError,
			wantLabels:   []string{LabelRetry},
			wantMessage:  "Kubernetes API server error (503)",
		},
		{
			name:         "422 generic",
			failure:      APIFailure{StatusCode: 422},
			wantKind:     types.ErrorKindAPI,
			wantSeverity: types.SeverityError,
			wantMessage:  "API request failed with status 422",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := b.API(tt.failure, nil, opts)
			assert.Equal(t, tt.wantKind, d.Kind)
			assert.Equal(t, tt.wantSeverity, d.Severity)
			assert.Equal(t, tt.wantMessage, d.Message)
			assert.Equal(t, tt.wantLabels, labels(d.Actions))
			assert.Equal(t, tt.failure.StatusCode, d.StatusCode)
		})
	}
}

func TestAPI_RateLimitRetryAfter(t *testing.T) {
	b, _ := newTestBuilder(t)
	h := http.Header{}
	h.Set("retry-after", "30")

	d := b.API(APIFailure{StatusCode: 429, Headers: h}, nil, APIOptions{})
	require.NotEmpty(t, d.Suggestions)
	assert.Contains(t, d.Suggestions[0], "30")
	assert.Equal(t, "Wait 30 seconds before retrying", d.Suggestions[0])
	assert.Empty(t, d.Actions, "no retry callback means no retry action")
}

func TestAPI_RateLimitRetryAfterDate(t *testing.T) {
	b, _ := newTestBuilder(t)
	h := http.Header{}
	h.Set("Retry-After", "Wed, 21 Oct 2026 07:28:00 GMT")

	d := b.API(APIFailure{StatusCode: 429, Headers: h}, nil, APIOptions{})
	assert.Equal(t, "Retry after Wed, 21 Oct 2026 07:28:00 GMT", d.Suggestions[0])
}

func TestAPI_RateLimitNoHeader(t *testing.T) {
	b, _ := newTestBuilder(t)
	d := b.API(APIFailure{StatusCode: 429}, nil, APIOptions{})
	assert.Equal(t, "Wait a moment before retrying", d.Suggestions[0])
}

func TestAPI_GenericSerializesBody(t *testing.T) {
	b, _ := newTestBuilder(t)

	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "map", body: map[string]any{"reason": "Invalid", "code": 422}, want: `{"code":422,"reason":"Invalid"}`},
		{name: "string", body: "plain text", want: "plain text"},
		{name: "bytes", body: []byte(`{"a":1}`), want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := b.API(APIFailure{StatusCode: 422, Body: tt.body, Err: errors.New("unprocessable")}, nil, APIOptions{})
			assert.Contains(t, d.TechnicalDetails, "Status: 422")
			assert.Contains(t, d.TechnicalDetails, tt.want)
			assert.Contains(t, d.TechnicalDetails, "unprocessable")
		})
	}
}

func TestAPI_NotFoundUsesHostRefreshWithoutCallback(t *testing.T) {
	b, rec := newTestBuilder(t)
	d := b.API(APIFailure{StatusCode: 404}, nil, APIOptions{})
	run(t, d, LabelRefresh)
	assert.Equal(t, []string{RefreshCommand}, rec.Commands.IDs())
}

func TestAPIFailure_RetryAfter(t *testing.T) {
	assert.Empty(t, APIFailure{}.RetryAfter())
	h := http.Header{}
	h.Set("Retry-After", " 12 ")
	assert.Equal(t, "12", APIFailure{Headers: h}.RetryAfter())
}

func TestAPI_ForbiddenWithoutAccess(t *testing.T) {
	b, _ := newTestBuilder(t)
	d := b.API(APIFailure{StatusCode: 403, Err: errors.New("forbidden")}, nil, APIOptions{})
	assert.Equal(t, types.ErrorKindRBAC, d.Kind)
	assert.Equal(t, "Permission denied: Cannot access the requested resource", d.Message)
	assert.NotContains(t, d.Suggestions, "Verify your access by running:")
	for _, s := range d.Suggestions {
		assert.NotContains(t, s, "can-i")
	}
}
