package trace

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilTracer_noPanic(t *testing.T) {
	var tr *Tracer
	if tr.Enabled() {
		t.Error("(*Tracer)(nil).Enabled() = true")
	}
	tr.Section("x")
	tr.Printf("x %d", 1)
	tr.Field("k", "v")
	tr.Start("x")()
}

func TestEnabled(t *testing.T) {
	if New(nil).Enabled() {
		t.Error("Enabled() with nil writer = true, want false")
	}
	var buf bytes.Buffer
	if !New(&buf).Enabled() {
		t.Error("Enabled() with writer = false, want true")
	}
}

func TestSectionFieldPrintf(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf)
	tr.Section("Diff")
	tr.Field("bytes", 42)
	tr.Printf("staged=%v\n", true)
	got := buf.String()
	for _, want := range []string{"[ai-commit:trace] === Diff ===", "  bytes: 42\n", "staged=true\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
}

func TestStart_writesElapsed(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return clock }
	done := tr.Start("chat completion")
	clock = clock.Add(1500 * time.Millisecond)
	done()
	if got, want := buf.String(), "  chat completion took 1.5s\n"; got != want {
		t.Errorf("Start wrote %q, want %q", got, want)
	}
}
