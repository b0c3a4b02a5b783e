// Package trace writes internal step output to stderr when --trace is set.
// A Tracer with a nil writer (or a nil *Tracer) is a no-op.
package trace

import (
	"fmt"
	"io"
	"time"
)

// Tracer writes sectioned trace output.
type Tracer struct {
	w   io.Writer
	now func() time.Time
}

// New returns a Tracer that writes to w. If w is nil, all methods no-op.
func New(w io.Writer) *Tracer {
	return &Tracer{w: w, now: time.Now}
}

// Enabled returns true if the tracer has a non-nil writer.
func (t *Tracer) Enabled() bool {
	return t != nil && t.w != nil
}

// Section writes a section header: "\n[ai-commit:trace] === name ===\n"
func (t *Tracer) Section(name string) {
	if !t.Enabled() {
		return
	}
	fmt.Fprintf(t.w, "\n[ai-commit:trace] === %s ===\n", name)
}

// Printf writes to the trace writer when enabled.
func (t *Tracer) Printf(format string, args ...interface{}) {
	if !t.Enabled() {
		return
	}
	fmt.Fprintf(t.w, format, args...)
}

// Field writes one indented "key: value" line.
func (t *Tracer) Field(key string, value interface{}) {
	if !t.Enabled() {
		return
	}
	fmt.Fprintf(t.w, "  %s: %v\n", key, value)
}

// Start returns a func that, when called, writes how long name took.
// Typical use: defer tr.Start("chat completion")().
func (t *Tracer) Start(name string) func() {
	if !t.Enabled() {
		return func() {}
	}
	begin := t.now()
	return func() {
		fmt.Fprintf(t.w, "  %s took %s\n", name, t.now().Sub(begin).Round(time.Millisecond))
	}
}
