package services

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeEmail trims and case-folds an address so lookups and the unique
// index agree on one spelling.
func NormalizeEmail(s string) string {
	// A Caser is stateful; build one per call.
	return cases.Fold().String(strings.TrimSpace(s))
}

// NormalizeUsername trims surrounding whitespace.
func NormalizeUsername(s string) string {
	return strings.TrimSpace(s)
}
