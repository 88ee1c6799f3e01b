package syntax

import (
	"strings"
	"testing"
)

func mustSource(t *testing.T, src string) *source {
	t.Helper()
	s, err := newSource("test.c", strings.NewReader(src))
	if err != nil {
		t.Fatalf("newSource: %v", err)
	}
	return s
}

func TestSourceBasic(t *testing.T) {
	src := mustSource(t, "abc")

	for i, want := range "abc" {
		if src.ch != want {
			t.Errorf("ch = %q, want %q", src.ch, want)
		}
		if src.line != 1 || src.col != i+1 {
			t.Errorf("pos = %d:%d, want 1:%d", src.line, src.col, i+1)
		}
		src.nextch()
	}
	if src.ch != -1 {
		t.Errorf("ch = %d, want -1 (EOF)", src.ch)
	}
}

func TestSourceNewline(t *testing.T) {
	src := mustSource(t, "a\nb\n  c")

	want := []struct {
		ch        rune
		line, col int
	}{
		{'a', 1, 1},
		{'\n', 1, 2},
		{'b', 2, 1},
		{'\n', 2, 2},
		{' ', 3, 1},
		{' ', 3, 2},
		{'c', 3, 3},
	}
	for _, w := range want {
		if src.ch != w.ch || src.line != w.line || src.col != w.col {
			t.Errorf("got ch=%q pos=%d:%d, want ch=%q pos=%d:%d",
				src.ch, src.line, src.col, w.ch, w.line, w.col)
		}
		src.nextch()
	}
}

func TestSourceColumnsCountBytes(t *testing.T) {
	src := mustSource(t, "é=\n€x")

	want := []struct {
		ch        rune
		line, col int
	}{
		{'é', 1, 1},
		{'=', 1, 3},
		{'\n', 1, 4},
		{'€', 2, 1},
		{'x', 2, 4},
	}
	for _, w := range want {
		if src.ch != w.ch || src.line != w.line || src.col != w.col {
			t.Errorf("got ch=%q pos=%d:%d, want ch=%q pos=%d:%d",
				src.ch, src.line, src.col, w.ch, w.line, w.col)
		}
		src.nextch()
	}
}

func TestSourceEmpty(t *testing.T) {
	src := mustSource(t, "")
	if src.ch != -1 {
		t.Errorf("ch = %d, want -1", src.ch)
	}
	if src.peek() != -1 {
		t.Errorf("peek() = %d, want -1", src.peek())
	}
}

func TestSourcePeek(t *testing.T) {
	src := mustSource(t, "/*")
	if src.ch != '/' || src.peek() != '*' {
		t.Errorf("ch, peek = %q, %q; want '/', '*'", src.ch, src.peek())
	}
	if src.ch != '/' {
		t.Error("peek must not advance")
	}
}
