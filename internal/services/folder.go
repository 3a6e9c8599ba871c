package services

import (
	"regexp"
	"strings"
)

var (
	folderDisallowed = regexp.MustCompile(`[^a-z0-9\s-]+`)
	folderRuns       = regexp.MustCompile(`[\s-]+`)
)

// SanitizeFolderName derives the storage folder prefix from a product label:
// lowercase, strip everything outside [a-z0-9\s-], collapse whitespace and
// hyphen runs, trim edge hyphens. The result matches
// ^[a-z0-9]+(-[a-z0-9]+)*$ or is empty (a label of only punctuation).
// Idempotent: sanitizing a sanitized name is a no-op.
func SanitizeFolderName(label string) string {
	s := strings.ToLower(label)
	s = folderDisallowed.ReplaceAllString(s, "")
	s = folderRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
