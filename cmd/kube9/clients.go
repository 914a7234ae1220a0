package main

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// getDynamicClientFunc and getClientsetFunc create Kubernetes clients.
// They can be overridden in tests to inject fake clients.
var (
	getDynamicClientFunc = defaultGetDynamicClient
	getClientsetFunc     = defaultGetClientset
	currentClusterFunc   = defaultCurrentCluster
)

func clientConfig(kubeconfig string) clientcmd.ClientConfig {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{})
}

func restConfig(kubeconfig string) (*rest.Config, error) {
	cfg, err := clientConfig(kubeconfig).ClientConfig()
	if err != nil {
		return nil, err
	}
	cfg.UserAgent = "kube9/" + version
	return cfg, nil
}

func defaultGetDynamicClient(kubeconfig string) (dynamic.Interface, error) {
	cfg, err := restConfig(kubeconfig)
	if err != nil {
		return nil, err
	}
	return dynamic.NewForConfig(cfg)
}

func defaultGetClientset(kubeconfig string) (kubernetes.Interface, error) {
	cfg, err := restConfig(kubeconfig)
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(cfg)
}

// defaultCurrentCluster returns the cluster name of the current kubeconfig context.
func defaultCurrentCluster(kubeconfig string) string {
	raw, err := clientConfig(kubeconfig).RawConfig()
	if err != nil {
		return ""
	}
	if kctx, ok := raw.Contexts[raw.CurrentContext]; ok {
		return kctx.Cluster
	}
	return ""
}

// resolveGVR parses "resource[.version[.group]]" or "resource.group".
// When no version is given, apiVersion is used.
func resolveGVR(arg, apiVersion string) (schema.GroupVersionResource, error) {
	if arg == "" {
		return schema.GroupVersionResource{}, fmt.Errorf("resource is required")
	}
	gvr, gr := schema.ParseResourceArg(arg)
	if gvr != nil && looksLikeVersion(gvr.Version) {
		return *gvr, nil
	}
	return gr.WithVersion(apiVersion), nil
}

// looksLikeVersion rejects the middle segment of "ingresses.networking.k8s.io"
// being read as a version.
func looksLikeVersion(v string) bool {
	if len(v) < 2 || v[0] != 'v' {
		return false
	}
	return v[1] >= '0' && v[1] <= '9'
}
