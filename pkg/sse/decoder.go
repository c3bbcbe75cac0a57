/*
Package sse implements the client side of the A2A streaming transport: a
finite reader over one Server-Sent-Events response body. The decoder yields
each `data:` frame once; a literal [DONE] frame or a closed connection ends
the stream. Re-opening a stream is a fresh HTTP request, not a resume.
*/
package sse

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/agentmesh/agentmesh/pkg/metrics"
	"github.com/charmbracelet/log"
)

// Done is the terminal sentinel frame.
const Done = "[DONE]"

// Decoder reads SSE frames from a response body.
type Decoder struct {
	reader *bufio.Reader
	closer io.Closer
	done   bool
}

func NewDecoder(body io.ReadCloser) *Decoder {
	return &Decoder{
		reader: bufio.NewReader(body),
		closer: body,
	}
}

/*
Next returns the payload of the next data frame. It returns io.EOF once the
stream has terminated, either via the [DONE] sentinel or the connection
closing. Frames that are not valid JSON are dropped, not fatal.
*/
func (dec *Decoder) Next() (json.RawMessage, error) {
	if dec.done {
		return nil, io.EOF
	}

	for {
		data, err := dec.readFrame()

		if err != nil {
			dec.done = true
			dec.closer.Close()

			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}

			return nil, err
		}

		if data == Done {
			dec.done = true
			dec.closer.Close()
			return nil, io.EOF
		}

		if !json.Valid([]byte(data)) {
			log.Warn("dropping malformed stream frame", "frame", data)
			metrics.Metrics.StreamFrames.WithLabelValues("dropped").Inc()
			continue
		}

		metrics.Metrics.StreamFrames.WithLabelValues("ok").Inc()
		return json.RawMessage(data), nil
	}
}

// readFrame reads lines until one complete event has been assembled.
// Multi-line data fields are joined with newlines per the SSE spec.
func (dec *Decoder) readFrame() (string, error) {
	var data strings.Builder
	inEvent := false

	for {
		line, err := dec.reader.ReadString('\n')

		if err != nil {
			if inEvent && data.Len() > 0 {
				return data.String(), nil
			}
			return "", err
		}

		line = strings.TrimRight(line, "\n\r")

		// Empty line marks the end of an event.
		if line == "" {
			if inEvent {
				return data.String(), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			// comment / heartbeat
			continue
		}

		if strings.HasPrefix(line, "data:") {
			inEvent = true
			payload := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")

			if data.Len() > 0 {
				data.WriteString("\n")
			}

			data.WriteString(payload)
		}
		// id:/event: fields are tolerated and ignored; A2A streams carry
		// everything in the data payload.
	}
}

// Close shuts the underlying body down early. Subsequent Next calls return
// io.EOF.
func (dec *Decoder) Close() error {
	dec.done = true
	return dec.closer.Close()
}
