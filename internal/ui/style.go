package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	Magenta     = color.New(color.FgMagenta).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
)

// SetColor turns ANSI styling on or off for every helper in this package.
// color also disables itself when stdout is not a terminal.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// CriticalMark returns the marker printed next to critical tasks, or a blank
// of the same width.
func CriticalMark(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// FloatLabel renders a total float value: zero is red, a small cushion
// yellow, anything else green.
func FloatLabel(days int) string {
	text := fmt.Sprintf("%dd", days)
	switch {
	case days <= 0:
		return BoldRed(text)
	case days <= 2:
		return Yellow(text)
	default:
		return Green(text)
	}
}

// ValidIcon returns a colored pass/fail icon.
func ValidIcon(ok bool) string {
	if ok {
		return Green("✓")
	}
	return Red("✗")
}

// TaskID returns a styled task id.
func TaskID(id string) string {
	return BoldMagenta(id)
}
