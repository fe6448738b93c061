package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestSpanWritesBeginAndEnd(t *testing.T) {
	var buf bytes.Buffer
	tracer, err := New(Config{Level: LevelDetail, Output: &buf, Format: FormatText})
	if err != nil {
		t.Fatalf("new tracer: %v", err)
	}
	ctx := WithTracer(context.Background(), tracer)
	ctx, parent := Start(ctx, ScopeRequest, "textDocument/build")
	_, child := Start(ctx, ScopeTool, "latexmk")
	child.WithExtra("status", "success").End("")
	parent.End("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "-> textDocument/build") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if !strings.Contains(lines[2], "<- latexmk") || !strings.Contains(lines[2], "{status=success}") {
		t.Fatalf("unexpected child end line: %q", lines[2])
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewStreamTracer(&buf, LevelRequest, FormatNDJSON)
	Begin(tracer, ScopeTool, "chktex", 0).End("")
	if buf.Len() != 0 {
		t.Fatalf("tool scope should be filtered at request level, got %q", buf.String())
	}
	Begin(tracer, ScopeRequest, "initialize", 0).End("")
	var ev map[string]any
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	if err := json.Unmarshal([]byte(first), &ev); err != nil {
		t.Fatalf("decode ndjson: %v", err)
	}
	if ev["name"] != "initialize" || ev["kind"] != "begin" {
		t.Fatalf("unexpected event: %v", ev)
	}
}

func TestOffLevelIsNop(t *testing.T) {
	tracer, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("new tracer: %v", err)
	}
	if tracer.Enabled() {
		t.Fatal("off tracer must be disabled")
	}
	span := Begin(tracer, ScopeServer, "serve", 0)
	if span.ID() != 0 || span.End("") != 0 {
		t.Fatal("inert span expected")
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"off": LevelOff, "Request": LevelRequest, "detail": LevelDetail, "debug": LevelDebug, "": LevelOff} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("phase"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
