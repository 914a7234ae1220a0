package classifier

import (
	"fmt"
	"net/http"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// Resource identifies a Kubernetes object.
type Resource struct {
	Type      string
	Name      string
	Namespace string
}

func (r Resource) describe() string {
	switch {
	case r.Type != "" && r.Name != "":
		return fmt.Sprintf("%s %q", r.Type, r.Name)
	case r.Type != "":
		return r.Type
	case r.Name != "":
		return fmt.Sprintf("Resource %q", r.Name)
	default:
		return "Resource"
	}
}

// NotFound describes a 404 for res. refresh may be nil, in which case the
// action runs the host refresh command.
func (b *Builder) NotFound(err error, res Resource, ectx types.ErrorContext, refresh Callback) types.ErrorDetails {
	return types.ErrorDetails{
		Kind:             types.ErrorKindNotFound,
		Severity:         types.SeverityWarning,
		Message:          res.describe() + " not found",
		TechnicalDetails: errText(err),
		Context:          ectx,
		Cause:            types.CauseFrom(err),
		StatusCode:       http.StatusNotFound,
		Suggestions: suggestions(
			"The resource may have been deleted or renamed",
			"Refresh the view to load the current state of the cluster",
		),
		Actions: []types.ErrorAction{b.refreshAction(refresh)},
	}
}
