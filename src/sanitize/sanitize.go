// Package sanitize cleans text that comes from CI providers before it reaches
// a terminal or an MCP client. Branch names, pipeline names and API error
// bodies are provider controlled and may carry escape sequences.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// SGR and other CSI sequences: \x1b[...m, \x1b[2J
	csiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

	// OSC sequences such as hyperlinks and window titles, ended by BEL or ST.
	oscPattern = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)

	// Buildkite timestamp markers: \x1b_bk;t=...\x07
	buildkiteTimestamp = regexp.MustCompile(`\x1b_bk;t=[0-9]+\x07`)
)

// StripANSI removes escape sequences and Buildkite timestamp markers.
func StripANSI(s string) string {
	s = buildkiteTimestamp.ReplaceAllString(s, "")
	s = oscPattern.ReplaceAllString(s, "")
	s = csiPattern.ReplaceAllString(s, "")
	return s
}

// Label makes s safe to show on a single line: escape sequences are removed
// and remaining control characters become spaces.
func Label(s string) string {
	if s == "" {
		return s
	}
	s = StripANSI(s)
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}
