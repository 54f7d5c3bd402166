// Package diag defines the compiler diagnostic model and the sinks
// diagnostics are delivered through during a build.
package diag

import (
	"fmt"
	"sync"
)

// Kind classifies a diagnostic message.
type Kind string

const (
	KindInfo     Kind = "info"
	KindProgress Kind = "progress"
	KindWarning  Kind = "warning"
	KindError    Kind = "error"
)

// Severe reports whether the kind fails a build.
func (k Kind) Severe() bool {
	return k == KindError
}

// Message is a single diagnostic emitted by the compiler or the
// orchestration around it. SourcePath is optional; Line and Column are
// 1-based and only meaningful when SourcePath is set.
type Message struct {
	Kind       Kind
	Text       string
	SourcePath string
	Line       int
	Column     int
}

// format expands args into the format string. Compiler output is passed
// through verbatim when no args are given, so stray verbs in it survive.
func format(f string, args []any) string {
	if len(args) == 0 {
		return f
	}
	return fmt.Sprintf(f, args...)
}

// Errorf builds an error message without source attribution.
func Errorf(f string, args ...any) Message {
	return Message{Kind: KindError, Text: format(f, args)}
}

// Warningf builds a warning message without source attribution.
func Warningf(f string, args ...any) Message {
	return Message{Kind: KindWarning, Text: format(f, args)}
}

// Infof builds an informational message.
func Infof(f string, args ...any) Message {
	return Message{Kind: KindInfo, Text: format(f, args)}
}

// Progressf builds a progress message.
func Progressf(f string, args ...any) Message {
	return Message{Kind: KindProgress, Text: format(f, args)}
}

// Sink receives diagnostic messages. Implementations must tolerate
// concurrent Send calls.
type Sink interface {
	Send(msg Message)
}

// Collector is a Sink that retains every message it receives.
type Collector struct {
	mu       sync.Mutex
	messages []Message
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Send appends the message.
func (c *Collector) Send(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the collected messages in arrival order.
func (c *Collector) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// HasErrors reports whether any collected message is severe.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if m.Kind.Severe() {
			return true
		}
	}
	return false
}

// Reset discards all collected messages.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// multiSink fans messages out to several sinks.
type multiSink struct {
	sinks []Sink
}

// Multi returns a Sink delivering each message to every given sink in order.
func Multi(sinks ...Sink) Sink {
	return &multiSink{sinks: sinks}
}

func (m *multiSink) Send(msg Message) {
	for _, s := range m.sinks {
		s.Send(msg)
	}
}
