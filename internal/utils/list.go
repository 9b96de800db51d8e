package utils

import (
	"strings"
)

// SplitList splits a comma separated string, trimming whitespace and
// dropping empty items
func SplitList(s string) []string {
	items := make([]string, 0)

	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}

	return items
}

// FlattenList applies SplitList to every element, so values from a
// string slice flag and a comma separated env var end up in the same shape
func FlattenList(values []string) []string {
	items := make([]string, 0, len(values))

	for _, v := range values {
		items = append(items, SplitList(v)...)
	}

	return items
}

// NormalizeExtensions lower-cases extensions and ensures a leading dot.
// Duplicates are removed, first occurrence wins.
func NormalizeExtensions(exts []string) []string {
	seen := make(map[string]bool, len(exts))
	out := make([]string, 0, len(exts))

	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}

		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}

		if !seen[ext] {
			seen[ext] = true
			out = append(out, ext)
		}
	}

	return out
}
