package inference

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

var (
	dataPrefix    = []byte("data:")
	doneMarker    = []byte("[DONE]")
	streamBufSize = 64 * 1024
)

// Stream reads content deltas from a server-push chat-completion
// response. Frames arrive as "data: <json>" lines; the buffered reader
// reassembles frames that span network reads, so partial lines are never
// decoded. A stream is one-shot: once Recv returns io.EOF or an error it
// will not produce further deltas.
type Stream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	done   bool
}

func newStream(body io.ReadCloser) *Stream {
	return &Stream{
		body:   body,
		reader: bufio.NewReaderSize(body, streamBufSize),
	}
}

type deltaFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Recv returns the next non-empty content delta. It returns io.EOF when
// the backend signals completion or closes the connection, and any other
// error when the underlying read fails mid-stream. Frames that are not
// data frames, or whose payload does not decode, are skipped silently —
// keep-alive comments and no-op frames are expected.
func (s *Stream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		line, err := s.readLine()
		if err != nil {
			s.done = true
			return "", err
		}

		payload, ok := framePayload(line)
		if !ok {
			continue
		}
		if bytes.Equal(payload, doneMarker) {
			s.done = true
			return "", io.EOF
		}

		var frame deltaFrame
		if json.Unmarshal(payload, &frame) != nil {
			continue
		}
		if len(frame.Choices) == 0 {
			continue
		}
		if content := frame.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

// readLine reads one frame line, tolerating a final line without a
// trailing newline at EOF.
func (s *Stream) readLine() ([]byte, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return line, nil
		}
		return nil, err
	}
	return line, nil
}

// framePayload extracts the JSON payload from a data frame, trimming the
// event prefix and surrounding whitespace. Non-data lines report false.
func framePayload(line []byte) ([]byte, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
		return nil, false
	}
	return bytes.TrimSpace(line[len(dataPrefix):]), true
}

// Close releases the underlying connection. Safe to call more than once.
func (s *Stream) Close() error {
	s.done = true
	return s.body.Close()
}
