package ui

import "regexp"

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// stripANSI removes color escape sequences so tests can assert on text.
func stripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}
