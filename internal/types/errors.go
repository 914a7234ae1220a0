package types

import (
	"context"
	"fmt"
	"sort"
)

// ErrorKind classifies the domain a failure originated from.
type ErrorKind string

const (
	ErrorKindConnection ErrorKind = "CONNECTION"
	ErrorKindRBAC       ErrorKind = "RBAC"
	ErrorKindNotFound   ErrorKind = "NOT_FOUND"
	ErrorKindAPI        ErrorKind = "API"
	ErrorKindTimeout    ErrorKind = "TIMEOUT"
	ErrorKindValidation ErrorKind = "VALIDATION"
	ErrorKindUnexpected ErrorKind = "UNEXPECTED"
)

// AllErrorKinds lists every kind in a stable order, used for summaries.
var AllErrorKinds = []ErrorKind{
	ErrorKindConnection,
	ErrorKindRBAC,
	ErrorKindNotFound,
	ErrorKindAPI,
	ErrorKindTimeout,
	ErrorKindValidation,
	ErrorKindUnexpected,
}

// Valid reports whether k is one of the known kinds.
func (k ErrorKind) Valid() bool {
	for _, known := range AllErrorKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Severity selects the notification channel used to present an error.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// Recognized ErrorContext keys. Any other key is carried through untouched.
const (
	ContextCluster      = "cluster"
	ContextNamespace    = "namespace"
	ContextResourceType = "resourceType"
	ContextResourceName = "resourceName"
	ContextOperation    = "operation"
)

// ErrorContext describes where an error happened. It only feeds message
// augmentation and diagnostics, never control flow.
type ErrorContext map[string]string

func (c ErrorContext) Cluster() string      { return c[ContextCluster] }
func (c ErrorContext) Namespace() string    { return c[ContextNamespace] }
func (c ErrorContext) ResourceType() string { return c[ContextResourceType] }
func (c ErrorContext) ResourceName() string { return c[ContextResourceName] }
func (c ErrorContext) Operation() string    { return c[ContextOperation] }

// Keys returns the populated keys in sorted order.
func (c ErrorContext) Keys() []string {
	keys := make([]string, 0, len(c))
	for k, v := range c {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy that can be extended without mutating c.
func (c ErrorContext) Clone() ErrorContext {
	if c == nil {
		return nil
	}
	out := make(ErrorContext, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// ErrorAction is a named remediation step offered alongside a notification.
type ErrorAction struct {
	Label string
	Run   func(ctx context.Context) error
}

// Cause is the opaque, serializable form of the error that triggered a
// notification. Only Message and Stack are ever read.
type Cause struct {
	Message string
	Stack   string
}

// stackTracer matches errors that can render a stack with %+v.
type stackTracer interface {
	StackTrace() string
}

// CauseFrom converts err into a Cause. Returns nil for a nil error.
func CauseFrom(err error) *Cause {
	if err == nil {
		return nil
	}
	c := &Cause{Message: err.Error()}
	if st, ok := err.(stackTracer); ok {
		c.Stack = st.StackTrace()
	} else if verbose := fmt.Sprintf("%+v", err); verbose != c.Message {
		c.Stack = verbose
	}
	return c
}

// ErrorDetails is the single unit of work handed to the dispatcher.
// Kind, Severity and Message are always set; every other field is optional.
// A StatusCode of zero means no status code is attached.
type ErrorDetails struct {
	Kind             ErrorKind
	Severity         Severity
	Message          string
	TechnicalDetails string
	Context          ErrorContext
	Cause            *Cause
	StatusCode       int
	Suggestions      []string
	Actions          []ErrorAction
	DocumentationURL string
}

// Action returns the custom action with the given label, if any.
func (d ErrorDetails) Action(label string) (ErrorAction, bool) {
	for _, a := range d.Actions {
		if a.Label == label {
			return a, true
		}
	}
	return ErrorAction{}, false
}
