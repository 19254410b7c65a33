package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("fièvre élevée", 6); got != "fièvre..." {
		t.Errorf("multibyte: got %q", got)
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("  fever,\n\tcough  and\n\nchills "); got != "fever, cough and chills" {
		t.Errorf("got %q", got)
	}
}
