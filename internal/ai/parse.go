package ai

import (
	"strings"
)

// StripFences removes a surrounding markdown code fence from a model reply,
// including an optional language tag on the opening fence.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx != -1 {
		// drop the language tag line ("json", "text", ...)
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine != "" && !strings.ContainsAny(firstLine, " \t") && len(firstLine) <= 16 {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// SplitListItems turns a model reply into list items. It accepts numbered
// lines ("1. ...", "2) ..."), bullet lines ("- ...", "* ...", "• ...") and
// plain lines, skipping empties.
func SplitListItems(s string) []string {
	lines := strings.Split(StripFences(s), "\n")
	items := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = trimListMarker(line)
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}

func trimListMarker(line string) string {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}

	// numbered markers: digits followed by '.' or ')'
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}
