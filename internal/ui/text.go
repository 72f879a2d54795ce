package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Formatter renders one kind of CLI content. With colors disabled it falls
// back to plain decorations around the text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...any) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...any) string {
	return f.render(fmt.Sprintf(format, a...))
}

// noColor honours NO_COLOR (https://no-color.org/) and fatih/color's own
// terminal detection.
func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Code formats runnable commands. `backticks` without color.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	// Path formats file paths and URLs.
	Path = Formatter{color.New(color.FgYellow), "", ""}

	// Key formats secret names.
	Key = Formatter{color.New(color.FgYellow, color.Bold), "", ""}

	Success = Formatter{color.New(color.FgGreen), "", ""}
	Error   = Formatter{color.New(color.FgRed), "", ""}
	Warning = Formatter{color.New(color.FgYellow), "", ""}
	Info    = Formatter{color.New(color.FgCyan), "", ""}

	// Highlight formats user values such as project and environment names.
	// 'single quotes' without color.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted formats secondary text. (parentheses) without color.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}
)

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if !strings.HasSuffix(s, "\n") {
		return s + "\n"
	}
	return s
}

// Mask hides a secret value, keeping at most the first two characters of
// values long enough that doing so reveals little.
func Mask(value string) string {
	runes := []rune(value)
	switch {
	case len(runes) == 0:
		return ""
	case len(runes) < 8:
		return strings.Repeat("*", len(runes))
	default:
		return string(runes[:2]) + strings.Repeat("*", 6)
	}
}

// KeyList formats secret names as an indented bullet list.
func KeyList(keys []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, key := range keys {
		b.WriteString("    - ")
		b.WriteString(Key.Sprint(key))
		b.WriteString("\n")
	}
	return b.String()
}

// KeyNames formats secret names inline, separated by commas.
func KeyNames(keys []string) string {
	formatted := make([]string, len(keys))
	for i, key := range keys {
		formatted[i] = Key.Sprint(key)
	}
	return strings.Join(formatted, ", ")
}
