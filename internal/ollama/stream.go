// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
)

// =============================================================================
// STREAM READER
// =============================================================================

// streamReader parses the newline-delimited JSON body of /api/generate.
// Each line is {response} | {error} | {done:true}; anything that does not
// parse as JSON is skipped rather than aborting the stream, since a single
// garbled line should not lose an otherwise good response.
type streamReader struct {
	reader *bufio.Reader
}

func newStreamReader(r io.Reader) *streamReader {
	return &streamReader{reader: bufio.NewReader(r)}
}

// process reads the stream to completion, invoking callback per chunk in
// line order. Returns nil on done=true or EOF, a stream ClientError when an
// error line arrives, or the context error on cancellation.
func (s *streamReader) process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &ClientError{Type: ErrTypeStream, Message: "stream read failed", Cause: err}
		}
		atEOF := err == io.EOF

		if chunk := parseLine(line); chunk != nil {
			callback(*chunk)
			if chunk.Err != nil {
				return chunk.Err
			}
			if chunk.Done {
				return nil
			}
		}

		if atEOF {
			return nil
		}
	}
}

// parseLine converts one NDJSON line to a chunk. Returns nil for blank or
// malformed lines (skipped by design) and for lines carrying no content.
func parseLine(line []byte) *Chunk {
	if len(line) == 0 {
		return nil
	}

	var resp GenerateResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil
	}

	if resp.Error != "" {
		return &Chunk{Err: &ClientError{Type: ErrTypeStream, Message: resp.Error}}
	}
	if resp.Done {
		return &Chunk{Done: true}
	}
	if resp.Response == "" {
		return nil
	}
	return &Chunk{Text: resp.Response}
}
