package textutil

import "testing"

func TestTailBufferKeepsLastBytes(t *testing.T) {
	buf := NewTailBuffer(5)
	if _, err := buf.Write([]byte("abc")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := buf.Write([]byte("defgh")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := buf.String(); got != "defgh" {
		t.Fatalf("String() = %q", got)
	}
}

func TestTailBufferUnlimited(t *testing.T) {
	buf := &TailBuffer{}
	_, _ = buf.Write([]byte("hello "))
	_, _ = buf.Write([]byte("world"))
	if got := buf.String(); got != "hello world" {
		t.Fatalf("String() = %q", got)
	}
}

func TestLastLines(t *testing.T) {
	input := "first\n\n  second  \nthird\n"
	if got := LastLines(input, 2); got != "second; third" {
		t.Fatalf("LastLines = %q", got)
	}
	if got := LastLines(input, 10); got != "first; second; third" {
		t.Fatalf("LastLines = %q", got)
	}
	if got := LastLines(input, 0); got != "" {
		t.Fatalf("LastLines(0) = %q", got)
	}
	buf := NewTailBuffer(0)
	_, _ = buf.Write([]byte("a\nb\n"))
	if got := buf.Summary(1); got != "b" {
		t.Fatalf("Summary = %q", got)
	}
}
