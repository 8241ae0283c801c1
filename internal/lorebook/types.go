// Package lorebook implements keyword-triggered context injection: lore
// sources are loaded from JSON files, matched against the conversation,
// and injected into the system prompt before the request goes upstream.
package lorebook

// Entry is a single keyword-triggered text snippet.
// Entries are immutable once loaded.
type Entry struct {
	Keys          []string `json:"keys"`
	Content       string   `json:"content"`
	Comment       string   `json:"comment,omitempty"`
	Order         int      `json:"order,omitempty"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`
}

// Source is a named collection of entries, loaded from one JSON file.
type Source struct {
	Title   string           `json:"title,omitempty"`
	Author  string           `json:"author,omitempty"`
	Entries map[string]Entry `json:"entries"`

	// FileName is the file the source was loaded from; used as the title
	// fallback and in log messages.
	FileName string `json:"-"`
}

// MatchedEntry is one selected entry together with its ordering key.
type MatchedEntry struct {
	Content string
	Order   int
}

// EffectiveTitle returns the title used for directive matching:
// the declared title, or the file name without extension.
func (s *Source) EffectiveTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.FileName
}
