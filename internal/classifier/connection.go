package classifier

import (
	"fmt"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// Connection describes a failure to reach the cluster API server.
func (b *Builder) Connection(err error, ectx types.ErrorContext, retry Callback) types.ErrorDetails {
	actions := b.retryAction(retry)
	actions = append(actions, b.openKubeconfigAction(), b.docsAction(b.docsURL))

	return types.ErrorDetails{
		Kind:             types.ErrorKindConnection,
		Severity:         types.SeverityError,
		Message:          "Unable to connect to the Kubernetes cluster",
		TechnicalDetails: errText(err),
		Context:          ectx,
		Cause:            types.CauseFrom(err),
		Suggestions: suggestions(
			"Check your network connection and that the cluster API server is reachable",
			fmt.Sprintf("Verify that your kubeconfig (%s) points to the correct cluster and context", b.kubeconfigPath),
			"Ensure kubectl is installed and available on your PATH",
		),
		Actions:          actions,
		DocumentationURL: b.docsURL,
	}
}
