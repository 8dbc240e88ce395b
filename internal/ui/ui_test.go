package ui

import (
	"bytes"
	"strings"
	"testing"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr := Stdout, Stderr
	Stdout, Stderr = &out, &errOut
	t.Cleanup(func() {
		Stdout, Stderr = oldOut, oldErr
		SetTheme("classic")
		SetColorForcing(false, false)
	})
	return &out, &errOut
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		done, total, width int
		want               string
	}{
		{0, 0, 10, "░░░░░░░░░░   0%"},
		{1, 2, 10, "█████░░░░░  50%"},
		{3, 3, 5, "█████ 100%"},
		{1, 1, 2, "█████ 100%"},
	}
	for _, tt := range tests {
		if got := ProgressBar(tt.done, tt.total, tt.width); got != tt.want {
			t.Errorf("ProgressBar(%d, %d, %d) = %q, want %q", tt.done, tt.total, tt.width, got, tt.want)
		}
	}
}

func TestPanelAlignsColoredLines(t *testing.T) {
	out, _ := capture(t)
	SetColorForcing(true, false)

	Panel([]string{C(fgGreen, "ab"), "abcd"})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	want := visibleWidth(lines[0])
	for _, ln := range lines {
		if w := visibleWidth(ln); w != want {
			t.Errorf("line %q width %d, want %d", stripANSI(ln), w, want)
		}
	}
}

func TestMonoThemeDisablesColor(t *testing.T) {
	out, errOut := capture(t)
	SetColorForcing(true, false)
	SetTheme("mono")

	OK("added")
	Fail("boom")

	if strings.Contains(out.String(), "\033[") || strings.Contains(errOut.String(), "\033[") {
		t.Errorf("mono theme emitted color codes: %q %q", out.String(), errOut.String())
	}
	if Current().BoxChecked != "[x]" {
		t.Errorf("BoxChecked = %q", Current().BoxChecked)
	}
}

func TestColorOffWhenNotTTY(t *testing.T) {
	capture(t)
	if got := C(fgRed, "x"); got != "x" {
		t.Errorf("C on non-tty = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate(strings.Repeat("a", 20), 10); got != "aaaaaaa..." {
		t.Errorf("Truncate = %q", got)
	}
}
