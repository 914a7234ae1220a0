package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilnet "k8s.io/apimachinery/pkg/util/net"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/alto9/kube9-vscode-sub011/internal/classifier"
	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// operation describes a failed Kubernetes call.
type operation struct {
	Name      string // e.g. "List pods"
	Verb      string
	Resource  string
	Kind      string
	Object    string
	Namespace string
	Cluster   string
	Elapsed   time.Duration
}

func (op operation) context() types.ErrorContext {
	ectx := types.ErrorContext{}
	set := func(k, v string) {
		if v != "" {
			ectx[k] = v
		}
	}
	set(types.ContextCluster, op.Cluster)
	set(types.ContextNamespace, op.Namespace)
	set(types.ContextResourceType, op.Kind)
	set(types.ContextResourceName, op.Object)
	set(types.ContextOperation, op.Name)
	return ectx
}

// classify routes a raw client-go error to the matching builder.
// retry re-runs the operation and may be nil.
func classify(b *classifier.Builder, err error, op operation, retry classifier.Callback) types.ErrorDetails {
	ectx := op.context()

	var status apierrors.APIStatus
	switch {
	case isTimeout(err):
		return b.Timeout(err, op.Name, op.Elapsed, ectx, retry)
	case isConnectionFailure(err):
		return b.Connection(err, ectx, retry)
	case errors.As(err, &status):
		return b.API(apiFailure(err, status, op), ectx, classifier.APIOptions{Retry: retry})
	default:
		return b.Unexpected(err, ectx)
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		apierrors.IsTimeout(err) ||
		utilnet.IsTimeout(err)
}

func isConnectionFailure(err error) bool {
	return utilnet.IsConnectionRefused(err) ||
		utilnet.IsConnectionReset(err) ||
		utilnet.IsNoRoutesError(err) ||
		clientcmd.IsEmptyConfig(err) ||
		clientcmd.IsConfigurationInvalid(err)
}

func apiFailure(err error, status apierrors.APIStatus, op operation) classifier.APIFailure {
	st := status.Status()
	f := classifier.APIFailure{
		StatusCode: int(st.Code),
		Body:       st,
		Err:        err,
		Access: classifier.Access{
			Verb:      op.Verb,
			Resource:  op.Resource,
			Namespace: op.Namespace,
		},
		Resource: classifier.Resource{
			Type:      op.Kind,
			Name:      op.Object,
			Namespace: op.Namespace,
		},
	}
	if f.StatusCode == 0 {
		f.StatusCode = http.StatusInternalServerError
	}
	if seconds, ok := apierrors.SuggestsClientDelay(err); ok {
		f.Headers = http.Header{"Retry-After": []string{strconv.Itoa(seconds)}}
	}
	return f
}
