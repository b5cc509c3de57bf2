package ui

import (
	"testing"
)

func TestPlainOutputWhenColorDisabled(t *testing.T) {
	SetColor(false)
	defer SetColor(true)

	tests := []struct {
		got  string
		want string
	}{
		{CriticalMark(true), "⚡"},
		{CriticalMark(false), " "},
		{FloatLabel(0), "0d"},
		{FloatLabel(5), "5d"},
		{ValidIcon(true), "✓"},
		{ValidIcon(false), "✗"},
		{TaskID("t1"), "t1"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
