package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"
	"golang.org/x/term"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

var (
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	infoStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)

// Badge renders the severity tag used as the notification channel prefix.
func Badge(s types.Severity) string {
	switch s {
	case types.SeverityError:
		return errorStyle.Render("[ERROR]")
	case types.SeverityWarning:
		return warningStyle.Render("[WARNING]")
	default:
		return infoStyle.Render("[INFO]")
	}
}

// Prompt is a line-oriented NotificationSurface. It prints the message with
// numbered actions and reads the choice from in. Prompts are serialized
// because they share one input stream, and a single goroutine owns the
// reader. A line that arrives after a prompt was cancelled answers the next
// prompt.
type Prompt struct {
	mu    sync.Mutex
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan promptLine
}

type promptLine struct {
	text string
	err  error
}

// NewPrompt creates a Prompt over in/out. A nil in never prompts and always dismisses.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	p := &Prompt{out: out, lines: make(chan promptLine)}
	if in != nil {
		p.in = bufio.NewReader(in)
	}
	return p
}

// readLoop feeds lines until the input fails, then closes lines.
func (p *Prompt) readLoop() {
	defer close(p.lines)
	for {
		text, err := p.in.ReadString('\n')
		p.lines <- promptLine{text: text, err: err}
		if err != nil {
			return
		}
	}
}

// Show implements NotificationSurface.
func (p *Prompt) Show(ctx context.Context, severity types.Severity, message string, labels []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "%s %s\n", Badge(severity), message)
	if p.in == nil || len(labels) == 0 {
		return "", nil
	}
	for i, l := range labels {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, l)
	}
	fmt.Fprint(p.out, "Select an action (Enter to dismiss): ")
	p.once.Do(func() { go p.readLoop() })

	var line promptLine
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-p.lines:
		if !ok {
			return "", nil
		}
		line = l
	}
	if line.err != nil && !errors.Is(line.err, io.EOF) {
		return "", fmt.Errorf("read selection: %w", line.err)
	}
	return parseSelection(strings.TrimSpace(line.text), labels), nil
}

// parseSelection accepts a 1-based index or an exact label.
func parseSelection(input string, labels []string) string {
	if input == "" {
		return ""
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(labels) {
			return labels[n-1]
		}
		return ""
	}
	for _, l := range labels {
		if strings.EqualFold(l, input) {
			return l
		}
	}
	return ""
}

// Interactive is a NotificationSurface that renders a selectable menu.
// It requires a terminal on stdin.
type Interactive struct {
	mu sync.Mutex
}

// Show implements NotificationSurface.
func (s *Interactive) Show(ctx context.Context, severity types.Severity, message string, labels []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	options := make([]huh.Option[string], 0, len(labels)+1)
	for _, l := range labels {
		options = append(options, huh.NewOption(l, l))
	}
	options = append(options, huh.NewOption("Dismiss", ""))

	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(Badge(severity) + " " + message).
			Options(options...).
			Value(&choice),
	))
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", nil
		}
		return "", err
	}
	return choice, nil
}

// NewSurface picks Interactive when stdin and stdout are terminals and
// interactive is requested, otherwise a Prompt on stdin/stdout.
func NewSurface(interactive bool) NotificationSurface {
	if interactive && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return &Interactive{}
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return NewPrompt(nil, os.Stdout)
	}
	return NewPrompt(os.Stdin, os.Stdout)
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

// Write implements Clipboard.
func (SystemClipboard) Write(_ context.Context, text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard is not supported on this platform")
	}
	return clipboard.WriteAll(text)
}

// BrowserOpener opens URIs with the OS default handler.
type BrowserOpener struct {
	// Out receives the URI as a fallback hint when opening fails.
	Out io.Writer
}

// Open implements ExternalOpener.
func (o BrowserOpener) Open(_ context.Context, uri string) error {
	if err := browser.OpenURL(uri); err != nil {
		if o.Out != nil {
			fmt.Fprintf(o.Out, "Open this link manually: %s\n", uri)
		}
		return fmt.Errorf("open %s: %w", uri, err)
	}
	return nil
}
