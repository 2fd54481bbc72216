package localmodel

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"meridian-hq/callisto/pkg/providers"
)

// streamReader decodes the runtime's newline-delimited JSON stream. One
// buffered reader persists across reads so a JSON object split across
// transport packets is reassembled before parsing.
type streamReader struct {
	provider string
	body     io.ReadCloser
	reader   *bufio.Reader
}

func newStreamReader(provider string, body io.ReadCloser) *streamReader {
	return &streamReader{
		provider: provider,
		body:     body,
		reader:   bufio.NewReader(body),
	}
}

// Read returns the next decoded chunk. Blank and malformed lines are
// skipped; io.EOF signals transport closure.
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
				// A final unterminated line still counts as an object.
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

func (r *streamReader) decodeLine(line string) (*providers.StreamChunk, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}

	var gen generateResponse
	if err := json.Unmarshal([]byte(line), &gen); err != nil {
		slog.Debug("skipping malformed stream line",
			"provider", r.provider,
			"error", err,
		)
		return nil, false
	}

	chunk := &providers.StreamChunk{
		Delta: gen.Response,
		Done:  gen.Done,
	}
	if gen.Done {
		chunk.Usage = usageFrom(&gen)
	}
	if gen.Error != "" {
		chunk.Error = &providers.StreamError{
			Provider: r.provider,
			Message:  "runtime error: " + gen.Error,
		}
	}
	return chunk, true
}

func (r *streamReader) Close() error {
	return r.body.Close()
}
