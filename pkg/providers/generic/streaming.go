package generic

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"

	"meridian-hq/callisto/pkg/providers"
)

// sseDataPrefix marks payload lines in a server-sent event stream.
const sseDataPrefix = "data:"

// doneSentinel terminates an SSE stream in the OpenAI-compatible dialect.
const doneSentinel = "[DONE]"

// streamReader decodes an SSE body line by line. The buffered reader
// persists across reads, so a payload split across transport packets is
// reassembled instead of being parsed as two broken fragments.
type streamReader struct {
	provider  string
	body      io.ReadCloser
	reader    *bufio.Reader
	transform StreamTransformer
}

func newStreamReader(provider string, body io.ReadCloser, transform StreamTransformer) *streamReader {
	return &streamReader{
		provider:  provider,
		body:      body,
		reader:    bufio.NewReader(body),
		transform: transform,
	}
}

// Read returns the next decoded chunk. Malformed and non-data lines are
// skipped; io.EOF signals end of stream (either transport closure or the
// [DONE] sentinel).
func (r *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, &providers.StreamError{
				Provider: r.provider,
				Message:  "stream cancelled",
				Cause:    err,
			}
		}

		line, err := r.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// A final unterminated line still counts as a frame.
				if chunk, ok := r.decodeLine(line); ok {
					return chunk, nil
				}
				return nil, io.EOF
			}
			return nil, &providers.StreamError{
				Provider: r.provider,
				Message:  "read stream",
				Cause:    err,
			}
		}

		if chunk, ok := r.decodeLine(line); ok {
			return chunk, nil
		}
	}
}

// decodeLine parses a single SSE line. The second return is false when
// the line carried no deliverable chunk and reading should continue.
func (r *streamReader) decodeLine(line string) (*providers.StreamChunk, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}

	// The "data:" framing prefix is optional; some backends emit the
	// terminal sentinel as a bare line.
	data := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
	if data == doneSentinel {
		return &providers.StreamChunk{Done: true}, true
	}
	if !strings.HasPrefix(line, sseDataPrefix) {
		return nil, false
	}

	chunk, err := r.transform.TransformChunk([]byte(data))
	if err != nil {
		slog.Debug("skipping malformed stream frame",
			"provider", r.provider,
			"error", err,
		)
		return nil, false
	}
	if chunk == nil {
		return nil, false
	}
	return chunk, true
}

func (r *streamReader) Close() error {
	return r.body.Close()
}
