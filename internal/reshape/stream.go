package reshape

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	dataPrefix = []byte("data: ")
	doneEvent  = []byte("data: [DONE]")
	eventTail  = []byte("\n\n")
)

// StreamReshaper rewrites a backend SSE stream event by event. Chunks are
// fed in as they arrive off the wire with no alignment guarantee; the
// reshaper frames them into lines itself and keeps any incomplete tail
// buffered until the rest arrives. Output framing is one `data: ` event
// followed by a blank line, regardless of how the input was framed.
type StreamReshaper struct {
	w       io.Writer
	flusher http.Flusher
	merger  merger
	buf     []byte
}

// NewStreamReshaper creates a reshaper writing to w. If w implements
// http.Flusher, every processed chunk is flushed so deltas reach the
// client immediately.
func NewStreamReshaper(w io.Writer, showReasoning bool) *StreamReshaper {
	r := &StreamReshaper{
		w:      w,
		merger: merger{showReasoning: showReasoning},
	}
	if flusher, ok := w.(http.Flusher); ok {
		r.flusher = flusher
	}
	return r
}

// ProcessChunk consumes one raw chunk from the backend stream and writes
// any events completed by it. Boundary placement never changes the output:
// the same bytes split differently produce the same events.
func (r *StreamReshaper) ProcessChunk(chunk []byte) error {
	r.buf = append(r.buf, chunk...)

	for {
		idx := bytes.IndexByte(r.buf, '\n')
		if idx < 0 {
			return nil
		}
		line := r.buf[:idx]
		r.buf = r.buf[idx+1:]

		if err := r.processLine(bytes.TrimSuffix(line, []byte("\r"))); err != nil {
			return err
		}
	}
}

// Finish marks the end of the backend stream. A trailing unterminated line
// was never a complete event and is discarded; well-formed streams end with
// a newline and leave nothing behind.
func (r *StreamReshaper) Finish() error {
	if len(r.buf) > 0 {
		logrus.Debugf("Discarding %d unterminated bytes at end of stream", len(r.buf))
		r.buf = nil
	}
	return nil
}

func (r *StreamReshaper) processLine(line []byte) error {
	if len(line) == 0 {
		// Event separators are re-emitted on our own framing.
		return nil
	}
	if bytes.Equal(line, doneEvent) {
		// The terminator is not JSON and must never be parsed as such.
		return r.emitRaw(line)
	}
	if !bytes.HasPrefix(line, dataPrefix) {
		// Comment and field lines pass through untouched, attached to the
		// next event.
		if _, err := r.w.Write(append(line, '\n')); err != nil {
			return err
		}
		return nil
	}

	payload := line[len(dataPrefix):]
	rewritten, ok := r.rewritePayload(payload)
	if !ok {
		// Fail open: a payload we cannot parse is forwarded verbatim so a
		// backend format change degrades to passthrough, not an outage.
		logrus.Debugf("Forwarding unparseable stream payload verbatim (%d bytes)", len(payload))
		return r.emitRaw(line)
	}
	return r.emitPayload(rewritten)
}

// rewritePayload applies the merge policy to every choice delta, leaving
// all other fields of the payload byte-for-byte intact. It reports false
// when the payload is not valid JSON.
func (r *StreamReshaper) rewritePayload(payload []byte) ([]byte, bool) {
	if !gjson.ValidBytes(payload) {
		return nil, false
	}

	choices := gjson.GetBytes(payload, "choices").Array()
	var err error
	for i := range choices {
		delta := choices[i].Get("delta")
		if !delta.Exists() {
			continue
		}

		reasoning := delta.Get("reasoning_content").String()
		content := delta.Get("content").String()
		merged := r.merger.mergeDelta(reasoning, content)

		payload, err = sjson.SetBytes(payload, fmt.Sprintf("choices.%d.delta.content", i), merged)
		if err != nil {
			return nil, false
		}
		payload, err = sjson.DeleteBytes(payload, fmt.Sprintf("choices.%d.delta.reasoning_content", i))
		if err != nil {
			return nil, false
		}
	}
	return payload, true
}

func (r *StreamReshaper) emitPayload(payload []byte) error {
	if _, err := r.w.Write(dataPrefix); err != nil {
		return err
	}
	return r.emitRaw(payload)
}

func (r *StreamReshaper) emitRaw(data []byte) error {
	if _, err := r.w.Write(data); err != nil {
		return err
	}
	if _, err := r.w.Write(eventTail); err != nil {
		return err
	}
	if r.flusher != nil {
		r.flusher.Flush()
	}
	return nil
}
