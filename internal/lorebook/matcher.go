package lorebook

import (
	"regexp"
	"sort"
	"strings"

	"lorebridge/internal/models"
)

// Directive markers embedded in conversation text. The marker itself is
// matched case-insensitively; extracted titles are lower-cased and trimmed.
var (
	activatePattern   = regexp.MustCompile(`(?i)<LOREBOOK:([^>]+)>`)
	deactivatePattern = regexp.MustCompile(`(?i)<DISABLE_LOREBOOK:([^>]+)>`)
)

// Select returns the entries applicable to the conversation, sorted
// ascending by order. Ties keep discovery order, so repeated runs on the
// same input always produce the same sequence. Select never mutates the
// sources and performs no side effects.
func Select(sources []*Source, messages []models.Message) []MatchedEntry {
	if len(sources) == 0 || len(messages) == 0 {
		return nil
	}

	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(msg.Content)
	}
	text := b.String()
	lowerText := strings.ToLower(text)

	activated := extractTitles(activatePattern, text)
	deactivated := extractTitles(deactivatePattern, text)

	var matched []MatchedEntry
	for _, source := range sources {
		title := strings.ToLower(strings.TrimSpace(source.EffectiveTitle()))

		// Deactivation wins over any activation state.
		if _, disabled := deactivated[title]; disabled {
			continue
		}
		// With no activation directives every source is active by default.
		if len(activated) > 0 {
			if _, ok := activated[title]; !ok {
				continue
			}
		}

		// Entry iteration order over a map is not deterministic; walk the
		// ids sorted so discovery order is stable across runs.
		for _, id := range sortedEntryIDs(source.Entries) {
			entry := source.Entries[id]
			if entryMatches(entry, text, lowerText) {
				matched = append(matched, MatchedEntry{
					Content: entry.Content,
					Order:   entry.Order,
				})
			}
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Order < matched[j].Order
	})
	return matched
}

func entryMatches(entry Entry, text, lowerText string) bool {
	for _, key := range entry.Keys {
		if key == "" {
			continue
		}
		if entry.CaseSensitive {
			if strings.Contains(text, key) {
				return true
			}
		} else if strings.Contains(lowerText, strings.ToLower(key)) {
			return true
		}
	}
	return false
}

func extractTitles(pattern *regexp.Regexp, text string) map[string]struct{} {
	titles := make(map[string]struct{})
	for _, match := range pattern.FindAllStringSubmatch(text, -1) {
		title := strings.ToLower(strings.TrimSpace(match[1]))
		if title != "" {
			titles[title] = struct{}{}
		}
	}
	return titles
}

func sortedEntryIDs(entries map[string]Entry) []string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
