package reshape

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Body rewrites a complete, non-streaming chat-completion response. Each
// choice message's reasoning field is removed, and with reasoning display
// on its text is wrapped in think tags ahead of the content. A body that
// is not valid JSON is returned unchanged.
func Body(body []byte, showReasoning bool) []byte {
	if !gjson.ValidBytes(body) {
		return body
	}

	out := body
	choices := gjson.GetBytes(body, "choices").Array()
	for i := range choices {
		message := choices[i].Get("message")
		if !message.Exists() {
			continue
		}
		reasoning := message.Get("reasoning_content")
		if !reasoning.Exists() {
			continue
		}

		merged := mergeComplete(showReasoning, reasoning.String(), message.Get("content").String())

		var err error
		out, err = sjson.SetBytes(out, fmt.Sprintf("choices.%d.message.content", i), merged)
		if err != nil {
			return body
		}
		out, err = sjson.DeleteBytes(out, fmt.Sprintf("choices.%d.message.reasoning_content", i))
		if err != nil {
			return body
		}
	}
	return out
}
