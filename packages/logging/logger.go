// Package logging provides the line-oriented diagnostic loggers used by the
// execution engine.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger receives diagnostic lines. Implementations must be safe for
// concurrent use.
type Logger interface {
	Printf(format string, args ...any)
}

// StderrLogger writes each message as one line to an io.Writer.
type StderrLogger struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
}

// NewStderrLogger returns a logger writing to os.Stderr.
func NewStderrLogger(prefix string) *StderrLogger {
	return NewWriterLogger(os.Stderr, prefix)
}

func NewWriterLogger(w io.Writer, prefix string) *StderrLogger {
	return &StderrLogger{out: w, prefix: prefix}
}

func (l *StderrLogger) Printf(format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s%s\n", l.prefix, msg)
}

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

// Discard drops everything.
var Discard Logger = discardLogger{}

// Message is one captured log line.
type Message struct {
	Time time.Time
	Text string
}

func (m Message) String() string {
	return m.Time.Format("15:04:05.000") + " " + m.Text
}

// CapturingLogger keeps every message in memory, optionally forwarding to
// another Logger.
type CapturingLogger struct {
	mu       sync.Mutex
	messages []Message
	next     Logger
	now      func() time.Time
}

func NewCapturingLogger(next Logger) *CapturingLogger {
	return &CapturingLogger{next: next, now: time.Now}
}

func (l *CapturingLogger) Printf(format string, args ...any) {
	text := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.mu.Lock()
	l.messages = append(l.messages, Message{Time: l.now(), Text: text})
	l.mu.Unlock()
	if l.next != nil {
		l.next.Printf("%s", text)
	}
}

// Messages returns a copy of everything captured so far.
func (l *CapturingLogger) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Lines returns the captured message texts without timestamps.
func (l *CapturingLogger) Lines() []string {
	msgs := l.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

// HasMessageContaining reports whether any captured line contains s.
func (l *CapturingLogger) HasMessageContaining(s string) bool {
	for _, m := range l.Messages() {
		if strings.Contains(m.Text, s) {
			return true
		}
	}
	return false
}

// OrDiscard returns l, or Discard when l is nil.
func OrDiscard(l Logger) Logger {
	if l == nil {
		return Discard
	}
	return l
}
