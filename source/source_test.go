package source

import "testing"

func TestPositionOf(t *testing.T) {
	f := NewFile("test.prv", []byte("abc\ndef\n\nghi"))

	tests := []struct {
		offset    int
		line, col int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{4, 2, 1},
		{6, 2, 3},
		{8, 3, 1},
		{9, 4, 1},
		{11, 4, 3},
	}

	for _, tt := range tests {
		line, col := f.PositionOf(tt.offset)
		if line != tt.line || col != tt.col {
			t.Errorf("offset %d: got %d:%d, want %d:%d", tt.offset, line, col, tt.line, tt.col)
		}
	}
}

func TestPositionPastEnd(t *testing.T) {
	f := NewFile("test.prv", []byte("ab"))
	line, col := f.PositionOf(99)
	if line != 1 || col != 3 {
		t.Errorf("got %d:%d, want 1:3", line, col)
	}
}

func TestLine(t *testing.T) {
	f := NewFile("test.prv", []byte("first\nsecond\r\nthird"))

	if got := f.Line(1); got != "first" {
		t.Errorf("line 1: %q", got)
	}
	if got := f.Line(2); got != "second" {
		t.Errorf("line 2: %q", got)
	}
	if got := f.Line(3); got != "third" {
		t.Errorf("line 3: %q", got)
	}
	if got := f.Line(9); got != "" {
		t.Errorf("line 9: %q", got)
	}
}

func TestMap(t *testing.T) {
	m := NewMap()
	f := m.Add(NewFile("a.prv", []byte("x")))

	if m.Get("a.prv") != f {
		t.Error("lookup by name failed")
	}
	if m.Get("missing.prv") != nil {
		t.Error("missing file must be nil")
	}
}
