package services

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// upper trims s and upper-cases it. A Caser is stateful, so one is built per call.
func upper(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}

// middleInitial returns the first letter of a middle name, or ""
func middleInitial(middle string) string {
	for _, r := range upper(middle) {
		return string(r)
	}
	return ""
}
