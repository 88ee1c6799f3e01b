package syntax

import "testing"

func TestPosString(t *testing.T) {
	tests := []struct {
		name    string
		pos     Pos
		wantStr string
	}{
		{"with filename", NewPos("prog.c", 10, 5), "prog.c:10:5"},
		{"without filename", NewPos("", 10, 5), "10:5"},
		{"line 1 col 1", NewPos("main.c", 1, 1), "main.c:1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.String(); got != tt.wantStr {
				t.Errorf("Pos.String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestPosIsValid(t *testing.T) {
	if !NewPos("a.c", 1, 1).IsValid() {
		t.Error("NewPos(a.c, 1, 1) should be valid")
	}
	var zero Pos
	if zero.IsValid() {
		t.Error("zero Pos should be invalid")
	}
}

func TestPosAccessors(t *testing.T) {
	p := NewPos("x.c", 3, 7)
	if p.Line() != 3 || p.Col() != 7 || p.Filename() != "x.c" {
		t.Errorf("got %s:%d:%d, want x.c:3:7", p.Filename(), p.Line(), p.Col())
	}
}
