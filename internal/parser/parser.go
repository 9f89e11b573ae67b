// Package parser extracts inline #tags and [[wikilinks]] from lore bodies.
package parser

import (
	"regexp"
	"strings"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Result holds the markers found in a lore body.
type Result struct {
	Links []string
	Tags  []string
}

// Extract scans a Markdown body for [[wikilinks]] and #tags. Both lists are
// deduplicated and preserve first-seen order.
func Extract(body string) Result {
	return Result{
		Links: extractLinks(body),
		Tags:  extractTags(body),
	}
}

// extractLinks returns deduplicated wikilink targets, normalising aliases.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		raw := m[1]
		// Handle aliases: [[Target|Alias]] → Target.
		target := raw
		if i := strings.Index(raw, "|"); i >= 0 {
			target = raw[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

func extractTags(body string) []string {
	matches := tagRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		t := m[1]
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// MergeSet appends the items of extra that are not already in base,
// preserving base order. Used to fold inline markers into a record's
// tag/link sets without disturbing explicitly supplied values.
func MergeSet(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	out := base
	for _, b := range base {
		seen[b] = struct{}{}
	}
	for _, e := range extra {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
