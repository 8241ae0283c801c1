package lorebook

import (
	"strings"
	"testing"

	"lorebridge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLibrary(sources ...*Source) *Library {
	lib := &Library{enabled: true}
	lib.swap(sources)
	return lib
}

func TestInjectNoMatchesPassesThrough(t *testing.T) {
	inj := NewInjector(newTestLibrary(testSources()...))
	messages := userMessage("nothing relevant")

	result := inj.Inject(messages)
	assert.Equal(t, messages, result)
}

func TestInjectAppendsToExistingSystemMessage(t *testing.T) {
	inj := NewInjector(newTestLibrary(testSources()...))
	messages := []models.Message{
		{Role: models.RoleSystem, Content: "You are a narrator."},
		{Role: models.RoleUser, Content: "tell me about the king"},
	}

	result := inj.Inject(messages)

	require.Len(t, result, 2)
	assert.True(t, strings.HasPrefix(result[0].Content, "You are a narrator."))
	assert.Contains(t, result[0].Content, sectionMarker)
	assert.Contains(t, result[0].Content, "The king is old.")
	// The original slice is untouched.
	assert.Equal(t, "You are a narrator.", messages[0].Content)
}

func TestInjectPrependsSystemMessageWhenMissing(t *testing.T) {
	inj := NewInjector(newTestLibrary(testSources()...))
	messages := userMessage("the king entered the forest")

	result := inj.Inject(messages)

	require.Len(t, result, 2)
	assert.Equal(t, models.RoleSystem, result[0].Role)
	// Entries joined by a blank line, in order.
	assert.Equal(t, "The forest is haunted.\n\nThe king is old.", result[0].Content)
	assert.Equal(t, models.RoleUser, result[1].Role)
}

func TestInjectDisabledLibrary(t *testing.T) {
	lib := &Library{enabled: false}
	inj := NewInjector(lib)
	messages := userMessage("the king")

	assert.Equal(t, messages, inj.Inject(messages))
	assert.Zero(t, inj.MatchCount(messages))
}

func TestInjectIdempotentOnEmptyMatchSet(t *testing.T) {
	// Lore content that mentions no trigger keys: after one injection the
	// re-scan of the mutated conversation still matches the same entries,
	// but injection runs exactly once per request, so a second pass on an
	// unmatched conversation stays a no-op.
	inj := NewInjector(newTestLibrary(testSources()...))
	messages := userMessage("quiet day")

	once := inj.Inject(messages)
	twice := inj.Inject(once)
	assert.Equal(t, once, twice)
}

func TestMatchCount(t *testing.T) {
	inj := NewInjector(newTestLibrary(testSources()...))
	assert.Equal(t, 2, inj.MatchCount(userMessage("the king entered the forest")))
}
