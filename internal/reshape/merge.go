// Package reshape transforms backend chat-completion responses into the
// caller-facing shape. The backend emits a secondary reasoning text channel
// alongside normal content; depending on configuration that channel is
// either stripped or merged into the content channel inside think tags.
package reshape

import "strings"

// Markers wrapped around merged reasoning text. These are the de-facto
// tags emitted by reasoning models, so downstream clients that already
// understand think blocks need no changes.
const (
	ReasoningOpenMarker  = "<think>\n"
	ReasoningCloseMarker = "\n</think>\n\n"
)

// merger applies the content-merge policy. Its only state is whether an
// opened think segment has not been closed yet in the emitted output.
// One merger serves exactly one response and is never shared.
type merger struct {
	showReasoning bool
	reasoningOpen bool
}

// mergeDelta folds one delta's reasoning and content text into the single
// caller-facing content value.
//
// With reasoning display off, reasoning text is dropped and content passes
// through as-is. With it on, the first reasoning text of a span opens a
// think segment, further reasoning text appends raw, and the next content
// text closes the segment before being appended. Transitions are driven
// purely by which texts are non-empty, never by explicit terminator tokens.
func (m *merger) mergeDelta(reasoning, content string) string {
	if !m.showReasoning {
		return content
	}

	var b strings.Builder
	if reasoning != "" {
		if !m.reasoningOpen {
			b.WriteString(ReasoningOpenMarker)
			m.reasoningOpen = true
		}
		b.WriteString(reasoning)
	}
	if content != "" {
		if m.reasoningOpen {
			b.WriteString(ReasoningCloseMarker)
			m.reasoningOpen = false
		}
		b.WriteString(content)
	}
	return b.String()
}

// mergeComplete folds a fully-materialized message's reasoning and content.
func mergeComplete(showReasoning bool, reasoning, content string) string {
	if !showReasoning || reasoning == "" {
		return content
	}
	return ReasoningOpenMarker + reasoning + ReasoningCloseMarker + content
}
