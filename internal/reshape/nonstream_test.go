package reshape

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/stretchr/testify/assert"
)

const completionBody = `{
	"id": "chatcmpl-2",
	"object": "chat.completion",
	"model": "deepseek-reasoner",
	"choices": [
		{
			"index": 0,
			"message": {
				"role": "assistant",
				"reasoning_content": "thinking it through",
				"content": "the answer"
			},
			"finish_reason": "stop"
		}
	],
	"usage": {"prompt_tokens": 3, "completion_tokens": 5, "total_tokens": 8}
}`

func TestBodyReasoningHidden(t *testing.T) {
	out := string(Body([]byte(completionBody), false))

	assert.Equal(t, "the answer", gjson.Get(out, "choices.0.message.content").String())
	assert.False(t, gjson.Get(out, "choices.0.message.reasoning_content").Exists())
	assert.Equal(t, int64(8), gjson.Get(out, "usage.total_tokens").Int())
	assert.Equal(t, "chatcmpl-2", gjson.Get(out, "id").String())
}

func TestBodyReasoningShown(t *testing.T) {
	out := string(Body([]byte(completionBody), true))

	assert.Equal(t, "<think>\nthinking it through\n</think>\n\nthe answer",
		gjson.Get(out, "choices.0.message.content").String())
	assert.False(t, gjson.Get(out, "choices.0.message.reasoning_content").Exists())
}

func TestBodyWithoutReasoningUnchanged(t *testing.T) {
	body := `{"choices":[{"index":0,"message":{"role":"assistant","content":"plain"}}]}`

	assert.Equal(t, body, string(Body([]byte(body), true)))
}

func TestBodyInvalidJSONUnchanged(t *testing.T) {
	body := `<html>bad gateway</html>`

	assert.Equal(t, body, string(Body([]byte(body), false)))
}

func TestBodyMultipleChoices(t *testing.T) {
	body := `{"choices":[
		{"index":0,"message":{"role":"assistant","reasoning_content":"r0","content":"c0"}},
		{"index":1,"message":{"role":"assistant","content":"c1"}}
	]}`

	out := string(Body([]byte(body), true))

	assert.Equal(t, "<think>\nr0\n</think>\n\nc0", gjson.Get(out, "choices.0.message.content").String())
	assert.Equal(t, "c1", gjson.Get(out, "choices.1.message.content").String())
}
