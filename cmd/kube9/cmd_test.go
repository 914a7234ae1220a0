package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	k8sversion "k8s.io/apimachinery/pkg/version"
	fakediscovery "k8s.io/client-go/discovery/fake"
	"k8s.io/client-go/dynamic"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/alto9/kube9-vscode-sub011/internal/config"
	"github.com/alto9/kube9-vscode-sub011/internal/host"
	"github.com/alto9/kube9-vscode-sub011/internal/metrics"
	"github.com/alto9/kube9-vscode-sub011/internal/notifier"
	"github.com/alto9/kube9-vscode-sub011/internal/testutil"
	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

var podsGVR = schema.GroupVersionResource{Version: "v1", Resource: "pods"}

// makeFakeDynamicClient creates a fake dynamic client and pre-populates it
// with pods via the client API so namespace routing works.
func makeFakeDynamicClient(t *testing.T, pods ...string) *dynamicfake.FakeDynamicClient {
	t.Helper()
	client := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(),
		map[schema.GroupVersionResource]string{podsGVR: "PodList"})
	for _, name := range pods {
		pod := &unstructured.Unstructured{Object: map[string]interface{}{
			"apiVersion": "v1",
			"kind":       "Pod",
			"metadata":   map[string]interface{}{"name": name, "namespace": "default"},
		}}
		_, err := client.Resource(podsGVR).Namespace("default").Create(context.Background(), pod, metav1.CreateOptions{})
		require.NoError(t, err)
	}
	return client
}

// setFakeDynamicClient installs client for the duration of the test.
func setFakeDynamicClient(t *testing.T, client dynamic.Interface) {
	t.Helper()
	orig := getDynamicClientFunc
	getDynamicClientFunc = func(string) (dynamic.Interface, error) { return client, nil }
	t.Cleanup(func() { getDynamicClientFunc = orig })
}

func setFakeClientset(t *testing.T, client kubernetes.Interface) {
	t.Helper()
	orig := getClientsetFunc
	getClientsetFunc = func(string) (kubernetes.Interface, error) { return client, nil }
	t.Cleanup(func() { getClientsetFunc = orig })
}

// setTestHost replaces the notification surface and kubeconfig cluster lookup
// and restores the process-wide pipeline afterwards.
func setTestHost(t *testing.T) *testutil.Surface {
	t.Helper()
	surface := &testutil.Surface{}
	origSurface, origCluster := newSurfaceFunc, currentClusterFunc
	newSurfaceFunc = func(*config.Config, io.Writer) host.NotificationSurface { return surface }
	currentClusterFunc = func(string) string { return "kind-dev" }
	t.Cleanup(func() {
		newSurfaceFunc, currentClusterFunc = origSurface, origCluster
		notifier.SetFactory(nil)
		notifier.Reset()
	})
	return surface
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func countFor(s metrics.Summary, kind types.ErrorKind) int {
	for _, kc := range s.ByKind {
		if kc.Kind == kind {
			return kc.Count
		}
	}
	return 0
}

func TestProbe_Success(t *testing.T) {
	surface := setTestHost(t)
	setFakeDynamicClient(t, makeFakeDynamicClient(t, "web-0", "web-1"))

	out, err := runCmd(t, "probe", "--resource", "pods", "-n", "default", "-o", "json")
	require.NoError(t, err)

	var result ProbeResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 2, result.Items)
	assert.Equal(t, 0, result.Errors.Total)
	assert.Empty(t, surface.Calls())
}

func TestProbe_GetByName(t *testing.T) {
	setTestHost(t)
	setFakeDynamicClient(t, makeFakeDynamicClient(t, "web-0"))

	out, err := runCmd(t, "probe", "--resource", "pods", "-n", "default", "--name", "web-0", "-o", "json")
	require.NoError(t, err)

	var result ProbeResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Items)
	assert.Equal(t, "web-0", result.Name)
}

func TestProbe_NotFound(t *testing.T) {
	surface := setTestHost(t)
	setFakeDynamicClient(t, makeFakeDynamicClient(t))

	out, err := runCmd(t, "probe", "--resource", "pods", "-n", "default", "--name", "missing", "-o", "json")
	require.NoError(t, err)

	var result ProbeResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Failed)

	calls := surface.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, types.SeverityWarning, calls[0].Severity)
	assert.Equal(t, `pods "missing" not found (Cluster: kind-dev, Namespace: default, Resource: pods/missing)`, calls[0].Message)
	assert.Equal(t, "Refresh", calls[0].Labels[0])
}

func TestProbe_ForbiddenIsThrottled(t *testing.T) {
	surface := setTestHost(t)
	client := makeFakeDynamicClient(t)
	client.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(schema.GroupResource{Resource: "pods"}, "", errors.New(`User "dev" cannot list resource "pods"`))
	})
	setFakeDynamicClient(t, client)

	out, err := runCmd(t, "probe", "--resource", "pods", "-n", "default", "--repeat", "3", "-o", "json")
	require.NoError(t, err)

	var result ProbeResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, 3, result.Errors.Total)
	assert.Equal(t, 3, countFor(result.Errors, types.ErrorKindRBAC))

	calls := surface.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, types.SeverityError, calls[0].Severity)
	assert.True(t, strings.HasPrefix(calls[0].Message, "Permission denied: Cannot list pods in namespace default"))
}

func TestProbe_Timeout(t *testing.T) {
	surface := setTestHost(t)
	client := makeFakeDynamicClient(t)
	client.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, context.DeadlineExceeded
	})
	setFakeDynamicClient(t, client)

	_, err := runCmd(t, "probe", "--resource", "pods", "-n", "default")
	require.NoError(t, err)

	calls := surface.Calls()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0].Message, "List pods timed out after"))
	assert.Equal(t, []string{"Retry", "Open Settings", notifier.LabelViewLogs, notifier.LabelCopyDetails}, calls[0].Labels)
}

func TestProbe_RetryAction(t *testing.T) {
	surface := setTestHost(t)
	surface.Select = testutil.SelectLabel("Retry")
	client := makeFakeDynamicClient(t, "web-0")
	failures := 1
	client.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
		if failures > 0 {
			failures--
			return true, nil, apierrors.NewServiceUnavailable("etcd is unavailable")
		}
		return false, nil, nil
	})
	setFakeDynamicClient(t, client)

	out, err := runCmd(t, "probe", "--resource", "pods", "-n", "default")
	require.NoError(t, err)
	assert.Contains(t, out, "List pods succeeded on retry")
	// The retry succeeded, so no secondary notification is shown.
	assert.Len(t, surface.Calls(), 1)
}

func TestProbe_InvalidFlags(t *testing.T) {
	setTestHost(t)
	_, err := runCmd(t, "probe", "--resource", "pods", "--repeat", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--repeat must be at least 1")

	_, err = runCmd(t, "probe")
	require.Error(t, err)
}

func TestPing_Success(t *testing.T) {
	surface := setTestHost(t)
	client := fake.NewSimpleClientset()
	client.Discovery().(*fakediscovery.FakeDiscovery).FakedServerVersion = &k8sversion.Info{
		GitVersion: "v1.34.1",
		Platform:   "linux/amd64",
	}
	setFakeClientset(t, client)

	out, err := runCmd(t, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS:")
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "v1.34.1 (linux/amd64)")
	assert.Empty(t, surface.Calls())
}

func TestPing_ConnectionRefused(t *testing.T) {
	surface := setTestHost(t)
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "version", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, &net.OpError{Op: "dial", Net: "tcp",
			Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED}}
	})
	setFakeClientset(t, client)

	out, err := runCmd(t, "ping", "-o", "json")
	require.NoError(t, err)

	var result PingResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Reachable)
	assert.Equal(t, "kind-dev", result.Cluster)
	assert.Equal(t, 1, result.Errors.Total)

	calls := surface.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Unable to connect to the Kubernetes cluster (Cluster: kind-dev)", calls[0].Message)
	assert.Equal(t, []string{"Retry", "Open Kubeconfig", "View Documentation", notifier.LabelViewLogs, notifier.LabelCopyDetails}, calls[0].Labels)
}

func TestPing_Forbidden(t *testing.T) {
	surface := setTestHost(t)
	client := fake.NewSimpleClientset()
	client.PrependReactor("get", "version", func(k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewForbidden(schema.GroupResource{}, "", errors.New(`User "dev" cannot get path "/version"`))
	})
	setFakeClientset(t, client)

	_, err := runCmd(t, "ping")
	require.NoError(t, err)

	calls := surface.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Permission denied: Cannot get /version (Cluster: kind-dev)", calls[0].Message)
}

func TestSimulate_ForbiddenStatus(t *testing.T) {
	surface := setTestHost(t)

	_, err := runCmd(t, "simulate", "--kind", "API", "--status-code", "403", "-n", "team-a")
	require.NoError(t, err)

	calls := surface.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Permission denied: Cannot list pods in namespace team-a (Namespace: team-a)", calls[0].Message)
}

func TestSimulate_ThrottlesRepeats(t *testing.T) {
	surface := setTestHost(t)

	out, err := runCmd(t, "simulate", "--kind", "timeout", "--count", "2", "--interval", "100ms", "-o", "json")
	require.NoError(t, err)

	var result SimulateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 1, result.Throttled)
	assert.Equal(t, "TIMEOUT", result.Kind)
	assert.Equal(t, 2, result.Errors.Total)

	calls := surface.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, types.SeverityWarning, calls[0].Severity)
}

func TestSimulate_CustomMessage(t *testing.T) {
	surface := setTestHost(t)

	_, err := runCmd(t, "simulate", "--kind", "API", "--severity", "warning",
		"--message", "X failed", "--cluster", "prod", "-n", "default")
	require.NoError(t, err)

	calls := surface.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "X failed (Cluster: prod, Namespace: default)", calls[0].Message)
	assert.Equal(t, types.SeverityWarning, calls[0].Severity)
}

func TestSimulate_UnexpectedOffersReportIssue(t *testing.T) {
	surface := setTestHost(t)

	_, err := runCmd(t, "simulate")
	require.NoError(t, err)

	calls := surface.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Labels, notifier.LabelReportIssue)
}

func TestSimulate_InvalidKind(t *testing.T) {
	setTestHost(t)
	_, err := runCmd(t, "simulate", "--kind", "DISK")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kind "DISK"`)
}

func TestRegisteredCommands(t *testing.T) {
	setTestHost(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	var out bytes.Buffer
	a, err := newApp(context.Background(), cfg, zaptest.NewLogger(t), &out)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []string{"kube9.openSettings", "kube9.refresh"}, a.commands.IDs())
	require.NoError(t, a.commands.Run(context.Background(), "kube9.refresh"))
	assert.Contains(t, out.String(), "refresh")
}

func TestNewApp_BadWebhookLeavesNoLogFile(t *testing.T) {
	setTestHost(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Log.File = filepath.Join(t.TempDir(), "kube9.log")
	cfg.Webhook.URL = "ftp://hooks.example.com/kube9"

	_, err = newApp(context.Background(), cfg, zaptest.NewLogger(t), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create webhook sender")
	assert.NoFileExists(t, cfg.Log.File)
}
