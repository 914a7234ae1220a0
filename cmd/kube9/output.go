package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"sigs.k8s.io/yaml"

	"github.com/alto9/kube9-vscode-sub011/internal/metrics"
)

// ProbeResult is the result of a probe command.
type ProbeResult struct {
	Resource  string          `json:"resource"`
	Namespace string          `json:"namespace,omitempty"`
	Name      string          `json:"name,omitempty"`
	Attempts  int             `json:"attempts"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Items     int             `json:"items"`
	Errors    metrics.Summary `json:"errors"`
}

// PingResult is the result of a ping command.
type PingResult struct {
	Cluster   string          `json:"cluster,omitempty"`
	Reachable bool            `json:"reachable"`
	Version   string          `json:"version,omitempty"`
	Platform  string          `json:"platform,omitempty"`
	ElapsedMS int64           `json:"elapsedMs"`
	Errors    metrics.Summary `json:"errors"`
}

// SimulateResult is the result of a simulate command.
type SimulateResult struct {
	Kind      string          `json:"kind"`
	Severity  string          `json:"severity"`
	Message   string          `json:"message"`
	Sent      int             `json:"sent"`
	Throttled int             `json:"throttled"`
	Errors    metrics.Summary `json:"errors"`
}

// outputResult writes the result to w in the specified format.
func outputResult(w io.Writer, result interface{}, format string) error {
	switch format {
	case "json":
		return outputJSON(w, result)
	case "yaml":
		return outputYAML(w, result)
	default:
		return outputTable(w, result)
	}
}

func outputJSON(w io.Writer, result interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputYAML(w io.Writer, result interface{}) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func outputTable(out io.Writer, result interface{}) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch r := result.(type) {
	case ProbeResult:
		return outputProbeTable(w, r)
	case PingResult:
		return outputPingTable(w, r)
	case SimulateResult:
		return outputSimulateTable(w, r)
	default:
		// Fall back to JSON for unknown types
		return outputJSON(out, result)
	}
}

func outputProbeTable(w *tabwriter.Writer, r ProbeResult) error {
	fmt.Fprintf(w, "RESOURCE:\t%s\n", r.Resource)
	if r.Namespace != "" {
		fmt.Fprintf(w, "NAMESPACE:\t%s\n", r.Namespace)
	}
	if r.Name != "" {
		fmt.Fprintf(w, "NAME:\t%s\n", r.Name)
	}
	fmt.Fprintf(w, "ATTEMPTS:\t%d\n", r.Attempts)
	fmt.Fprintf(w, "SUCCEEDED:\t%d\n", r.Succeeded)
	fmt.Fprintf(w, "FAILED:\t%d\n", r.Failed)
	fmt.Fprintf(w, "ITEMS:\t%d\n\n", r.Items)
	return outputSummaryTable(w, r.Errors)
}

func outputPingTable(w *tabwriter.Writer, r PingResult) error {
	status := "UNREACHABLE"
	if r.Reachable {
		status = "OK"
	}
	if r.Cluster != "" {
		fmt.Fprintf(w, "CLUSTER:\t%s\n", r.Cluster)
	}
	fmt.Fprintf(w, "STATUS:\t%s\n", status)
	if r.Version != "" {
		fmt.Fprintf(w, "VERSION:\t%s (%s)\n", r.Version, r.Platform)
	}
	fmt.Fprintf(w, "ELAPSED:\t%dms\n\n", r.ElapsedMS)
	return outputSummaryTable(w, r.Errors)
}

func outputSimulateTable(w *tabwriter.Writer, r SimulateResult) error {
	fmt.Fprintf(w, "KIND:\t%s\n", r.Kind)
	fmt.Fprintf(w, "SEVERITY:\t%s\n", r.Severity)
	fmt.Fprintf(w, "MESSAGE:\t%s\n", r.Message)
	fmt.Fprintf(w, "SENT:\t%d\n", r.Sent)
	fmt.Fprintf(w, "THROTTLED:\t%d\n\n", r.Throttled)
	return outputSummaryTable(w, r.Errors)
}

func outputSummaryTable(w *tabwriter.Writer, s metrics.Summary) error {
	fmt.Fprintf(w, "TOTAL ERRORS:\t%d\n", s.Total)
	if s.Total == 0 {
		return nil
	}
	fmt.Fprintln(w, "KIND\tCOUNT")
	for _, kc := range s.ByKind {
		if kc.Count == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\n", kc.Kind, kc.Count)
	}
	return nil
}
