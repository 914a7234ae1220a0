package classifier

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// Access names the request that was denied. Resource may be a non-resource
// URL such as "/version".
type Access struct {
	Verb      string
	Resource  string
	Namespace string // empty = cluster-scoped
}

// Known reports whether both verb and resource are set.
func (a Access) Known() bool {
	return a.Verb != "" && a.Resource != ""
}

func (a Access) nonResource() bool {
	return strings.HasPrefix(a.Resource, "/")
}

// CanICommand returns the kubectl command that verifies a, or "" when a is
// not Known.
func (a Access) CanICommand() string {
	if !a.Known() {
		return ""
	}
	cmd := fmt.Sprintf("kubectl auth can-i %s %s", a.Verb, a.Resource)
	if a.Namespace != "" && !a.nonResource() {
		cmd += " -n " + a.Namespace
	}
	return cmd
}

func (a Access) scope() string {
	switch {
	case a.nonResource():
		return ""
	case a.Namespace != "":
		return " in namespace " + a.Namespace
	default:
		return " (cluster-scoped)"
	}
}

// RBAC describes a request rejected by the cluster's authorization layer.
// Without a verb and resource the message and suggestions stay generic.
func (b *Builder) RBAC(err error, access Access, ectx types.ErrorContext) types.ErrorDetails {
	message := "Permission denied: Cannot access the requested resource"
	var hints []string
	if access.Known() {
		message = fmt.Sprintf("Permission denied: Cannot %s %s%s", access.Verb, access.Resource, access.scope())
		hints = append(hints,
			"Verify your access by running:",
			access.CanICommand(),
			fmt.Sprintf("Ask your cluster administrator to grant %q access to %s", access.Verb, access.Resource),
		)
	} else {
		hints = append(hints, "Ask your cluster administrator which permissions your user is missing")
	}
	hints = append(hints, "Check that your kubeconfig uses the intended user or service account")

	return types.ErrorDetails{
		Kind:             types.ErrorKindRBAC,
		Severity:         types.SeverityError,
		Message:          message,
		TechnicalDetails: errText(err),
		Context:          ectx,
		Cause:            types.CauseFrom(err),
		StatusCode:       http.StatusForbidden,
		Suggestions:      suggestions(hints...),
		Actions:          []types.ErrorAction{b.docsAction(RBACDocsURL)},
		DocumentationURL: RBACDocsURL,
	}
}
