// Package classifier turns raw Kubernetes failures into ErrorDetails values.
//
// # Contract
//
// Every builder is pure with respect to the dispatcher: it only produces the
// value handed to notifier.Dispatcher.HandleError. Side effects happen later,
// inside the actions it attaches, and only when the user selects one.
//
//	Connection  ERROR    retry, open kubeconfig, documentation
//	RBAC        ERROR    documentation; suggests "kubectl auth can-i ..."
//	NotFound    WARNING  404, refresh
//	Timeout     WARNING  retry, open settings
//	API         routes on status code:
//	            401 -> unauthorized (ERROR, open kubeconfig)
//	            403 -> RBAC
//	            404 -> NotFound
//	            409 -> conflict (WARNING, refresh)
//	            429 -> rate limited (WARNING, Retry-After in suggestion)
//	            5xx -> server error (ERROR, retry)
//	            else -> generic API error with the serialized body
//	Validation  WARNING
//	Unexpected  ERROR
//
// Callers decide which builder applies; no builder inspects network errors.
package classifier
