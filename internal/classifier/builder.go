package classifier

import (
	"context"
	"net/url"
	"path/filepath"

	"k8s.io/client-go/tools/clientcmd"

	"github.com/alto9/kube9-vscode-sub011/internal/host"
	"github.com/alto9/kube9-vscode-sub011/internal/types"
	"github.com/alto9/kube9-vscode-sub011/internal/util"
)

// Action labels attached by the builders.
const (
	LabelRetry          = "Retry"
	LabelRefresh        = "Refresh"
	LabelOpenKubeconfig = "Open Kubeconfig"
	LabelOpenSettings   = "Open Settings"
	LabelViewDocs       = "View Documentation"
)

// Host command IDs run by default actions.
const (
	RefreshCommand  = "kube9.refresh"
	SettingsCommand = "kube9.openSettings"
)

// Documentation links used when no override is configured.
const (
	DefaultConnectionDocsURL = "https://kubernetes.io/docs/concepts/configuration/organize-cluster-access-kubeconfig/"
	RBACDocsURL              = "https://kubernetes.io/docs/reference/access-authn-authz/rbac/"
)

// Callback is a caller-supplied remediation such as retrying the failed operation.
type Callback func(ctx context.Context) error

// Options configures a Builder.
type Options struct {
	// KubeconfigPath is opened by the "Open Kubeconfig" action.
	// Defaults to the client-go recommended home file.
	KubeconfigPath string
	// DocsURL overrides the connection troubleshooting link.
	DocsURL string
}

// Builder creates ErrorDetails for each failure domain.
type Builder struct {
	opener         host.ExternalOpener
	commands       host.CommandRunner
	kubeconfigPath string
	docsURL        string
}

// NewBuilder creates a Builder. opener and commands back the default actions.
func NewBuilder(opener host.ExternalOpener, commands host.CommandRunner, opts Options) *Builder {
	if opts.KubeconfigPath == "" {
		opts.KubeconfigPath = clientcmd.RecommendedHomeFile
	}
	if opts.DocsURL == "" {
		opts.DocsURL = DefaultConnectionDocsURL
	}
	return &Builder{
		opener:         opener,
		commands:       commands,
		kubeconfigPath: opts.KubeconfigPath,
		docsURL:        opts.DocsURL,
	}
}

// KubeconfigPath returns the path opened by the kubeconfig action.
func (b *Builder) KubeconfigPath() string { return b.kubeconfigPath }

func (b *Builder) retryAction(retry Callback) []types.ErrorAction {
	if retry == nil {
		return nil
	}
	return []types.ErrorAction{{Label: LabelRetry, Run: retry}}
}

func (b *Builder) openKubeconfigAction() types.ErrorAction {
	uri := fileURI(b.kubeconfigPath)
	return types.ErrorAction{
		Label: LabelOpenKubeconfig,
		Run: func(ctx context.Context) error {
			return b.opener.Open(ctx, uri)
		},
	}
}

func (b *Builder) docsAction(link string) types.ErrorAction {
	return types.ErrorAction{
		Label: LabelViewDocs,
		Run: func(ctx context.Context) error {
			return b.opener.Open(ctx, link)
		},
	}
}

func (b *Builder) commandAction(label, commandID string) types.ErrorAction {
	return types.ErrorAction{
		Label: label,
		Run: func(ctx context.Context) error {
			return b.commands.Run(ctx, commandID)
		},
	}
}

// refreshAction prefers the caller's callback over the host refresh command.
func (b *Builder) refreshAction(refresh Callback) types.ErrorAction {
	if refresh != nil {
		return types.ErrorAction{Label: LabelRefresh, Run: refresh}
	}
	return b.commandAction(LabelRefresh, RefreshCommand)
}

func fileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func suggestions(s ...string) []string {
	return util.UniqueStrings(s)
}
