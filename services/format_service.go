package services

import "strings"

// citationRule is one literal replacement applied to model output.
type citationRule struct {
	old string
	new string
}

// citationRules wraps recognized citation keywords in markdown emphasis.
// Rules apply in order against the accumulated text; the table is built so
// no rule's replacement contains another rule's needle, which keeps the
// result independent of ordering.
var citationRules = []citationRule{
	{"Article", "**Article**"},
	{"Section", "**Section**"},
	{"Schedule", "**Schedule**"},
	{"IPC", "**IPC**"},
	{"CrPC", "**CrPC**"},
	{"CPC", "**CPC**"},
}

// FormatResponse post-processes raw model output: highlights citation
// keywords and strips leading/trailing whitespace.
func FormatResponse(raw string) string {
	out := raw
	for _, rule := range citationRules {
		out = strings.ReplaceAll(out, rule.old, rule.new)
	}
	return strings.TrimSpace(out)
}
