// Package ui prints colored progress and outcome summaries for the CLI.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan)
	red    = color.New(color.FgRed)
)

// Header prints a formatted header
func Header(text string) {
	line := strings.Repeat("=", 60)
	green.Printf("\n%s\n", line)
	green.Printf("%-60s\n", center(text, 60))
	green.Printf("%s\n\n", line)
}

// Step prints a step indicator
func Step(stepNum, totalSteps int, text string) {
	yellow.Printf("[%d/%d] %s\n", stepNum, totalSteps, text)
}

// Success prints a success message
func Success(text string) {
	green.Printf("  → %s\n", text)
}

// Info prints an info message
func Info(text string) {
	fmt.Printf("  → %s\n", text)
}

// Warning prints a warning message
func Warning(text string) {
	yellow.Printf("  ⚠ %s\n", text)
}

// Error prints an error message
func Error(text string) {
	red.Printf("Error: %s\n", text)
}

// Outcome prints one ingestion result, colored by kind.
func Outcome(sender string, outcome domain.Outcome) {
	switch outcome.Kind {
	case domain.OutcomeParsed:
		green.Printf("  ✓ %-14s %s\n", sender, outcome)
	case domain.OutcomeDuplicate:
		cyan.Printf("  = %-14s %s\n", sender, outcome)
	case domain.OutcomePersistenceFailed:
		red.Printf("  ✗ %-14s %s\n", sender, outcome)
	default:
		yellow.Printf("  ⚠ %-14s %s\n", sender, outcome)
	}
}

// Summary prints per-kind outcome counts after a batch run.
func Summary(counts map[domain.OutcomeKind]int) {
	fmt.Println()
	order := []domain.OutcomeKind{
		domain.OutcomeParsed,
		domain.OutcomeDuplicate,
		domain.OutcomeUnparseable,
		domain.OutcomeInvalidDate,
		domain.OutcomePersistenceFailed,
	}
	total := 0
	for _, kind := range order {
		if n := counts[kind]; n > 0 {
			fmt.Printf("  %-20s %d\n", kind, n)
			total += n
		}
	}
	green.Printf("  %-20s %d\n", "total", total)
}

// center centers text within a given width
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}
