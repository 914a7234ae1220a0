// Package testutil provides shared test doubles for the kube9 error pipeline.
// Import this in test files to avoid duplicating recording host capabilities.
package testutil

import (
	"context"
	"sync"

	"github.com/alto9/kube9-vscode-sub011/internal/host"
	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// Notification is one call recorded by Surface.
type Notification struct {
	Severity types.Severity
	Message  string
	Labels   []string
}

// Surface is a recording NotificationSurface. Select picks the label to
// return for each call; nil dismisses.
type Surface struct {
	mu     sync.Mutex
	calls  []Notification
	Select func(n Notification) string
	Err    error
}

// Show implements host.NotificationSurface.
func (s *Surface) Show(_ context.Context, severity types.Severity, message string, labels []string) (string, error) {
	n := Notification{Severity: severity, Message: message, Labels: append([]string(nil), labels...)}
	s.mu.Lock()
	s.calls = append(s.calls, n)
	sel := s.Select
	err := s.Err
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if sel == nil {
		return "", nil
	}
	return sel(n), nil
}

// Calls returns a copy of the recorded notifications.
func (s *Surface) Calls() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.calls...)
}

// SelectLabel returns a Select func that always picks label.
func SelectLabel(label string) func(Notification) string {
	return func(Notification) string { return label }
}

// Clipboard records written text.
type Clipboard struct {
	mu    sync.Mutex
	texts []string
	Err   error
}

// Write implements host.Clipboard.
func (c *Clipboard) Write(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.texts = append(c.texts, text)
	return nil
}

// Texts returns everything written so far.
func (c *Clipboard) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

// Opener records opened URIs.
type Opener struct {
	mu   sync.Mutex
	uris []string
	Err  error
}

// Open implements host.ExternalOpener.
func (o *Opener) Open(_ context.Context, uri string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.uris = append(o.uris, uri)
	return nil
}

// URIs returns everything opened so far.
func (o *Opener) URIs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.uris...)
}

// Commands records executed command IDs.
type Commands struct {
	mu  sync.Mutex
	ids []string
	Err error
}

// Run implements host.CommandRunner.
func (c *Commands) Run(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.ids = append(c.ids, id)
	return nil
}

// IDs returns every executed command ID.
func (c *Commands) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ids...)
}

// Recorder bundles recording doubles for every host capability.
type Recorder struct {
	Surface   *Surface
	Clipboard *Clipboard
	Opener    *Opener
	Commands  *Commands
}

// NewRecorder creates a Recorder whose surface dismisses every notification.
func NewRecorder() *Recorder {
	return &Recorder{
		Surface:   &Surface{},
		Clipboard: &Clipboard{},
		Opener:    &Opener{},
		Commands:  &Commands{},
	}
}

// Host returns a host.Host wired to the recorder.
func (r *Recorder) Host() host.Host {
	return host.Host{
		Surface:   r.Surface,
		Clipboard: r.Clipboard,
		Opener:    r.Opener,
		Commands:  r.Commands,
		Metadata: host.Metadata{
			PackageVersion: "1.2.3",
			HostVersion:    "1.90.0",
			Platform:       "linux/amd64",
		},
	}
}
