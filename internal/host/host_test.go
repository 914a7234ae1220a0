package host

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

func TestCommands_RegisterAndRun(t *testing.T) {
	c := NewCommands()
	var ran bool
	require.NoError(t, c.Register("kube9.refresh", func(context.Context) error {
		ran = true
		return nil
	}))

	require.NoError(t, c.Run(context.Background(), "kube9.refresh"))
	assert.True(t, ran)
	assert.Equal(t, []string{"kube9.refresh"}, c.IDs())
}

func TestCommands_Errors(t *testing.T) {
	c := NewCommands()
	require.Error(t, c.Register("", func(context.Context) error { return nil }))

	require.NoError(t, c.Register("a", func(context.Context) error { return errors.New("failed") }))
	err := c.Register("a", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.EqualError(t, c.Run(context.Background(), "a"), "failed")

	err = c.Run(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `command "missing" not found`)
}

func TestNop(t *testing.T) {
	h := Nop()
	sel, err := h.Surface.Show(context.Background(), types.SeverityError, "x", []string{"View Logs"})
	require.NoError(t, err)
	assert.Empty(t, sel)
	assert.NoError(t, h.Clipboard.Write(context.Background(), "x"))
	assert.NoError(t, h.Opener.Open(context.Background(), "https://example.com"))
	assert.NotEmpty(t, h.Metadata.Platform)
}

func TestParseSelection(t *testing.T) {
	labels := []string{"Retry", "View Logs", "Copy Error Details"}
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"1", "Retry"},
		{"3", "Copy Error Details"},
		{"4", ""},
		{"0", ""},
		{"view logs", "View Logs"},
		{"nope", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSelection(tt.input, labels))
		})
	}
}

func TestPrompt_Show(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompt(strings.NewReader("2\n"), &out)

	sel, err := p.Show(context.Background(), types.SeverityWarning, "Operation timed out", []string{"Retry", "View Logs"})
	require.NoError(t, err)
	assert.Equal(t, "View Logs", sel)
	assert.Contains(t, out.String(), "Operation timed out")
	assert.Contains(t, out.String(), "1) Retry")
	assert.Contains(t, out.String(), "2) View Logs")
}

func TestPrompt_EOFDismisses(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompt(strings.NewReader(""), &out)
	sel, err := p.Show(context.Background(), types.SeverityInfo, "note", []string{"View Logs"})
	require.NoError(t, err)
	assert.Empty(t, sel)
}

func TestPrompt_CancelledPromptKeepsReader(t *testing.T) {
	var out bytes.Buffer
	in, w := io.Pipe()
	defer w.Close()
	p := NewPrompt(in, &out)
	labels := []string{"Retry", "View Logs"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Show(ctx, types.SeverityWarning, "first", labels)
	require.ErrorIs(t, err, context.Canceled)

	go func() { _, _ = io.WriteString(w, "1\n") }()
	sel, err := p.Show(context.Background(), types.SeverityWarning, "second", labels)
	require.NoError(t, err)
	assert.Equal(t, "Retry", sel)
}

func TestPrompt_AfterEOFDismisses(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompt(strings.NewReader("1\n"), &out)
	labels := []string{"Retry"}

	sel, err := p.Show(context.Background(), types.SeverityInfo, "one", labels)
	require.NoError(t, err)
	assert.Equal(t, "Retry", sel)

	for range 2 {
		sel, err = p.Show(context.Background(), types.SeverityInfo, "again", labels)
		require.NoError(t, err)
		assert.Empty(t, sel)
	}
}

func TestPrompt_NilInputNeverPrompts(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompt(nil, &out)
	sel, err := p.Show(context.Background(), types.SeverityError, "boom", []string{"View Logs"})
	require.NoError(t, err)
	assert.Empty(t, sel)
	assert.Contains(t, out.String(), "boom")
	assert.NotContains(t, out.String(), "Select an action")
}

func TestBadge(t *testing.T) {
	assert.Contains(t, Badge(types.SeverityError), "ERROR")
	assert.Contains(t, Badge(types.SeverityWarning), "WARNING")
	assert.Contains(t, Badge(types.SeverityInfo), "INFO")
}
