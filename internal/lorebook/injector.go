package lorebook

import (
	"strings"

	"lorebridge/internal/models"
)

// sectionMarker visually separates injected lore from the original system
// prompt inside the system message.
const sectionMarker = "--- Lorebook Context ---"

// Injector selects applicable lore and injects it into a conversation.
type Injector struct {
	library *Library
}

// NewInjector creates an Injector over a library.
func NewInjector(library *Library) *Injector {
	return &Injector{library: library}
}

// Inject returns a new message slice with matched lore merged into the
// system prompt. The input slice is never mutated. With no matches the
// input is returned unchanged. Inject runs exactly once per request,
// before request mapping.
func (inj *Injector) Inject(messages []models.Message) []models.Message {
	if !inj.library.Enabled() {
		return messages
	}

	matched := Select(inj.library.Snapshot(), messages)
	if len(matched) == 0 {
		return messages
	}

	contents := make([]string, 0, len(matched))
	for _, m := range matched {
		contents = append(contents, m.Content)
	}
	block := strings.Join(contents, "\n\n")

	result := make([]models.Message, len(messages))
	copy(result, messages)

	for i := range result {
		if result[i].Role == models.RoleSystem {
			result[i].Content = result[i].Content + "\n\n" + sectionMarker + "\n" + block
			return result
		}
	}

	// No system message: prepend one holding only the lore block.
	return append([]models.Message{{Role: models.RoleSystem, Content: block}}, result...)
}

// MatchCount returns how many entries would be injected for a conversation.
// Used for request logging without re-running injection.
func (inj *Injector) MatchCount(messages []models.Message) int {
	if !inj.library.Enabled() {
		return 0
	}
	return len(Select(inj.library.Snapshot(), messages))
}
