package color

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ANSI color codes
const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Bold   = "\033[1m"
)

// Color represents a colorizer that can be enabled or disabled
type Color struct {
	enabled bool
}

// New creates a new Color instance
func New(enabled bool) *Color {
	return &Color{enabled: enabled && shouldEnableColor(os.Stdout)}
}

// shouldEnableColor determines if color should be enabled based on environment
func shouldEnableColor(f *os.File) bool {
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if term := os.Getenv("TERM"); term == "dumb" || term == "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Color) wrap(code, text string) string {
	if !c.enabled {
		return text
	}
	return code + text + Reset
}

// Add colors a string to indicate additions (green, like Terraform)
func (c *Color) Add(text string) string { return c.wrap(Green, text) }

// Change colors a string to indicate modifications (yellow, like Terraform)
func (c *Color) Change(text string) string { return c.wrap(Yellow, text) }

// Error colors a string red.
func (c *Color) Error(text string) string { return c.wrap(Red, text) }

// Bold makes text bold
func (c *Color) Bold(text string) string { return c.wrap(Bold, text) }

// Cyan colors text cyan (for headers and labels)
func (c *Color) Cyan(text string) string { return c.wrap(Cyan, text) }

// Symbol returns the plan symbol for a verdict name.
func (c *Color) Symbol(verdict string) string {
	switch verdict {
	case "create":
		return c.Add("+")
	case "update":
		return c.Change("~")
	case "invalid":
		return c.Error("!")
	default:
		return " "
	}
}

// FormatResultLine formats one object's line of a plan summary. A non-empty
// note is appended in parentheses.
func (c *Color) FormatResultLine(kind, name, verdict, note string) string {
	line := fmt.Sprintf("  %s %s %s", c.Symbol(verdict), kind, name)
	if note != "" {
		line += " (" + note + ")"
	}
	return line
}

// FormatPlanHeader formats the main plan header
func (c *Color) FormatPlanHeader(created, updated, invalid, violations int) string {
	parts := []string{
		c.Add(fmt.Sprintf("%d to create", created)),
		c.Change(fmt.Sprintf("%d to update", updated)),
	}
	if invalid > 0 {
		parts = append(parts, c.Error(fmt.Sprintf("%d invalid", invalid)))
	}
	if violations > 0 {
		parts = append(parts, c.Error(fmt.Sprintf("%d blocked by policy", violations)))
	}
	return fmt.Sprintf("Plan: %s.", strings.Join(parts, ", "))
}
