// Package logsink keeps the append-only diagnostic record of every handled error.
//
// Each entry is written as one block bounded by separator lines. The record is
// kept for the process lifetime (no rotation or size cap) and can be brought
// to the foreground with Reveal. Every entry is also mirrored to zap as a
// structured record.
package logsink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

// Separator bounds each entry block.
var Separator = strings.Repeat("=", 80)

// Entry is one diagnostic record.
type Entry struct {
	ID               string
	Timestamp        time.Time
	Kind             types.ErrorKind
	Severity         types.Severity
	Message          string
	StatusCode       int
	Context          types.ErrorContext
	TechnicalDetails string
	Stack            string
}

// EntryFromDetails builds an Entry for d observed at now.
func EntryFromDetails(id string, now time.Time, d types.ErrorDetails) Entry {
	e := Entry{
		ID:               id,
		Timestamp:        now,
		Kind:             d.Kind,
		Severity:         d.Severity,
		Message:          d.Message,
		StatusCode:       d.StatusCode,
		Context:          d.Context,
		TechnicalDetails: d.TechnicalDetails,
	}
	if d.Cause != nil {
		e.Stack = d.Cause.Stack
		if e.Stack == "" {
			e.Stack = d.Cause.Message
		}
	}
	return e
}

// Format renders e as a separator-bounded text block.
func (e Entry) Format() string {
	var b strings.Builder
	b.WriteString(Separator + "\n")
	fmt.Fprintf(&b, "[%s] %s (%s)\n", e.Timestamp.UTC().Format(time.RFC3339Nano), e.Kind, e.Severity)
	if e.ID != "" {
		fmt.Fprintf(&b, "Incident: %s\n", e.ID)
	}
	fmt.Fprintf(&b, "Message: %s\n", e.Message)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "Status Code: %d\n", e.StatusCode)
	}
	if len(e.Context) > 0 {
		if data, err := json.Marshal(e.Context); err == nil {
			fmt.Fprintf(&b, "Context: %s\n", data)
		}
	}
	if e.TechnicalDetails != "" {
		fmt.Fprintf(&b, "Technical Details: %s\n", e.TechnicalDetails)
	}
	if e.Stack != "" {
		fmt.Fprintf(&b, "Stack Trace:\n%s\n", e.Stack)
	}
	b.WriteString(Separator + "\n")
	return b.String()
}

// Sink is the diagnostic log capability used by the dispatcher.
type Sink interface {
	Append(e Entry)
	Reveal()
	Dispose() error
}

// Channel is the default Sink. It keeps the full record in memory, optionally
// tees each block to a writer (e.g. a log file), and mirrors entries to zap.
type Channel struct {
	mu       sync.Mutex
	logger   *zap.Logger
	record   strings.Builder
	tee      io.Writer
	revealTo io.Writer
	closer   io.Closer
	revealed int
	disposed bool
}

// NewChannel creates a Channel. tee may be nil.
func NewChannel(logger *zap.Logger, tee io.Writer) *Channel {
	c := &Channel{
		logger:   logger.Named("logsink"),
		tee:      tee,
		revealTo: os.Stderr,
	}
	if closer, ok := tee.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

// OpenFile creates a Channel that appends to the file at path.
func OpenFile(logger *zap.Logger, path string) (*Channel, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open diagnostic log %s: %w", path, err)
	}
	return NewChannel(logger, f), nil
}

// SetRevealWriter sets where Reveal prints the record.
func (c *Channel) SetRevealWriter(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revealTo = w
}

// Append implements Sink. Appends after Dispose are dropped.
func (c *Channel) Append(e Entry) {
	block := e.Format()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.record.WriteString(block)
	if c.tee != nil {
		if _, err := io.WriteString(c.tee, block); err != nil {
			c.logger.Warn("Failed to write diagnostic log block", zap.Error(err))
		}
	}
	c.mu.Unlock()

	c.mirror(e)
}

// Reveal implements Sink by writing the full record to the reveal writer.
func (c *Channel) Reveal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revealTo == nil {
		return
	}
	c.revealed++
	if _, err := io.WriteString(c.revealTo, c.record.String()); err != nil {
		c.logger.Warn("Failed to reveal diagnostic log", zap.Error(err))
	}
}

// Revealed returns how many times Reveal has been called.
func (c *Channel) Revealed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revealed
}

// Contents returns the full record.
func (c *Channel) Contents() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record.String()
}

// Dispose implements Sink. It closes the tee writer if it is closable.
func (c *Channel) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return nil
	}
	c.disposed = true
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

func (c *Channel) mirror(e Entry) {
	fields := []zap.Field{
		zap.String("kind", string(e.Kind)),
		zap.String("severity", string(e.Severity)),
		zap.String("incident_id", e.ID),
	}
	if e.StatusCode != 0 {
		fields = append(fields, zap.String("status_code", strconv.Itoa(e.StatusCode)))
	}
	if len(e.Context) > 0 {
		fields = append(fields, zap.Any("context", map[string]string(e.Context)))
	}
	if e.TechnicalDetails != "" {
		fields = append(fields, zap.String("technical_details", e.TechnicalDetails))
	}

	c.logger.Log(levelFor(e.Severity), e.Message, fields...)
}

func levelFor(s types.Severity) zapcore.Level {
	switch s {
	case types.SeverityError:
		return zapcore.ErrorLevel
	case types.SeverityWarning:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

var (
	instanceMu sync.Mutex
	instance   Sink
)

// Instance returns the process-wide sink, creating an in-memory Channel on first use.
func Instance() Sink {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = NewChannel(zap.NewNop(), nil)
	}
	return instance
}

// SetInstance replaces the process-wide sink, disposing the previous one.
func SetInstance(s Sink) {
	instanceMu.Lock()
	prev := instance
	instance = s
	instanceMu.Unlock()
	if prev != nil && prev != s {
		_ = prev.Dispose()
	}
}

// Reset disposes the process-wide sink. The next Instance call creates a new one.
func Reset() {
	SetInstance(nil)
}
