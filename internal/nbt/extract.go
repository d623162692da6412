package nbt

import (
	"regexp"
	"strings"
)

var (
	headerPattern  = regexp.MustCompile(`[^{}\n]*? has the following [^{}\n]*? data: `)
	payloadPattern = regexp.MustCompile(`(?m)^.* has the following .*? data: (.*)$`)
)

// Extract returns the payload of every "<subject> has the following <kind>
// data: <payload>" report in text. Reports that share a line are split first.
func Extract(text string) []string {
	text = headerPattern.ReplaceAllStringFunc(text, func(header string) string {
		return "\n" + strings.TrimLeft(header, " ")
	})
	var out []string
	for _, m := range payloadPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}
