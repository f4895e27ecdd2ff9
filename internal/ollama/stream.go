package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrIncompleteStream is returned when the response body ends before Ollama
// reports the generation as done.
var ErrIncompleteStream = errors.New("stream ended before completion")

const maxLineSize = 1024 * 1024

// Generate sends a streaming generate request and calls onChunk for every
// text increment in arrival order. Reasoning text delivered in the separate
// "thinking" field is passed through wrapped in ThinkOpen/ThinkClose chunks,
// so callers only deal with one sentinel-delimited text stream. An error from
// onChunk stops the stream and is returned as is.
func (c *Client) Generate(ctx context.Context, req GenerateRequest, onChunk func(string) error) error {
	// Force streaming
	req.Stream = true

	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Ollama returned status %d: %s", resp.StatusCode, errorMessage(body))
	}

	return streamResponse(resp.Body, onChunk)
}

// streamResponse reads the NDJSON body line by line
func streamResponse(body io.Reader, onChunk func(string) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	thinking := false
	emit := func(s string) error {
		if s == "" || onChunk == nil {
			return nil
		}
		return onChunk(s)
	}

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk GenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		if chunk.Error != "" {
			return fmt.Errorf("Ollama error: %s", chunk.Error)
		}

		if chunk.Thinking != "" {
			if !thinking {
				thinking = true
				if err := emit(ThinkOpen); err != nil {
					return err
				}
			}
			if err := emit(chunk.Thinking); err != nil {
				return err
			}
		}

		if chunk.Response != "" {
			if thinking {
				thinking = false
				if err := emit(ThinkClose); err != nil {
					return err
				}
			}
			if err := emit(chunk.Response); err != nil {
				return err
			}
		}

		if chunk.Done {
			if thinking {
				return emit(ThinkClose)
			}
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return ErrIncompleteStream
}

// errorMessage extracts {"error": "..."} from an Ollama error body, falling
// back to the raw text
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
