// Package taskref extracts task-tracker references from free-form text
// and normalizes them into canonical ledger keys.
package taskref

import (
	"regexp"
	"sort"
	"strings"
)

// Matches tracker URLs shaped like
// https://tree.taiga.io/project/acme-app/task/41, capturing the project
// slug and the numeric task id. A trailing path segment after the id is
// ignored.
var taskURLRegex = regexp.MustCompile(`https?://[^\s/]+/project/([A-Za-z0-9][A-Za-z0-9_.-]*)/task/(\d+)`)

// Key builds the canonical ledger key for a project slug and task id.
func Key(slug, id string) string {
	return strings.ToLower(slug) + "#" + id
}

// Extract returns the set of canonical task keys referenced in text,
// sorted and deduplicated. Extraction is best-effort: substrings that
// look like references but fail the pattern are skipped, never reported.
func Extract(text string) []string {
	matches := taskURLRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		key := Key(m[1], m[2])
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ExtractAll collapses references across multiple texts into one set.
func ExtractAll(texts ...string) []string {
	return Extract(strings.Join(texts, "\n"))
}
