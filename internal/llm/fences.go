package llm

import "strings"

const fence = "```"

// StripFences removes a leading code fence (with its optional language tag
// line) and a trailing fence from a model response, then trims whitespace
func StripFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, fence) {
		s = s[len(fence):]

		if nl := strings.IndexByte(s, '\n'); nl >= 0 && isFenceTag(s[:nl]) {
			s = s[nl+1:]
		} else if nl < 0 && isFenceTag(strings.TrimSuffix(s, fence)) {
			// a bare tag with nothing after it
			return ""
		}
	}

	s = strings.TrimSuffix(strings.TrimSpace(s), fence)

	return strings.TrimSpace(s)
}

// isFenceTag reports whether s looks like a fence info string such as
// "python", "py3" or "c++"
func isFenceTag(s string) bool {
	s = strings.TrimSpace(s)

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '+' || r == '-' || r == '_' || r == '.' || r == '#':
		default:
			return false
		}
	}

	return true
}
