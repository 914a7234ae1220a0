// Package host defines the capabilities the error dispatcher consumes from its
// host application, and terminal implementations for the kube9 CLI.
package host

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// NotificationSurface presents a message on the channel matching severity and
// waits for the user to pick one of labels. An empty result means dismissed.
type NotificationSurface interface {
	Show(ctx context.Context, severity types.Severity, message string, labels []string) (string, error)
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	Write(ctx context.Context, text string) error
}

// ExternalOpener opens a URI in an external application.
type ExternalOpener interface {
	Open(ctx context.Context, uri string) error
}

// CommandRunner executes a host command by ID.
type CommandRunner interface {
	Run(ctx context.Context, commandID string) error
}

// Metadata describes the running host. It is only read when building issue reports.
type Metadata struct {
	PackageVersion string
	HostVersion    string
	Platform       string
}

// DefaultMetadata fills Platform from the Go runtime.
func DefaultMetadata(packageVersion, hostVersion string) Metadata {
	return Metadata{
		PackageVersion: packageVersion,
		HostVersion:    hostVersion,
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Host bundles every capability.
type Host struct {
	Surface   NotificationSurface
	Clipboard Clipboard
	Opener    ExternalOpener
	Commands  CommandRunner
	Metadata  Metadata
}

// Nop returns a Host whose surface always dismisses and whose other
// capabilities succeed without doing anything.
func Nop() Host {
	return Host{
		Surface:   nopSurface{},
		Clipboard: nopClipboard{},
		Opener:    nopOpener{},
		Commands:  NewCommands(),
		Metadata:  DefaultMetadata("dev", "none"),
	}
}

type nopSurface struct{}

func (nopSurface) Show(context.Context, types.Severity, string, []string) (string, error) {
	return "", nil
}

type nopClipboard struct{}

func (nopClipboard) Write(context.Context, string) error { return nil }

type nopOpener struct{}

func (nopOpener) Open(context.Context, string) error { return nil }

// CommandFunc is the body of a registered command.
type CommandFunc func(ctx context.Context) error

// Commands is a CommandRunner backed by a registry of named functions.
type Commands struct {
	mu       sync.RWMutex
	commands map[string]CommandFunc
}

// NewCommands creates an empty registry.
func NewCommands() *Commands {
	return &Commands{commands: make(map[string]CommandFunc)}
}

// Register adds a command. Returns an error if id is empty or already registered.
func (c *Commands) Register(id string, fn CommandFunc) error {
	if id == "" {
		return fmt.Errorf("command ID is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.commands[id]; exists {
		return fmt.Errorf("command %q already registered", id)
	}
	c.commands[id] = fn
	return nil
}

// Run implements CommandRunner.
func (c *Commands) Run(ctx context.Context, commandID string) error {
	c.mu.RLock()
	fn, ok := c.commands[commandID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("command %q not found", commandID)
	}
	return fn(ctx)
}

// IDs returns the registered command IDs in sorted order.
func (c *Commands) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.commands))
	for id := range c.commands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
