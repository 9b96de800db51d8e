// Package llm talks to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Norgate-AV/llmconv/internal/errors"
	"github.com/Norgate-AV/llmconv/internal/logging"
	"github.com/rs/zerolog"
)

// maxErrorBody bounds how much of a failed response is kept for the error
const maxErrorBody = 512

// Client converts one source file per request
type Client struct {
	httpClient *http.Client
	endpoint   string
	builder    *RequestBuilder
	logger     zerolog.Logger
}

// NewClient creates a client for baseURL (e.g. http://localhost:11434/v1)
func NewClient(baseURL, model string, prompt Prompt, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(baseURL, "/") + "/chat/completions",
		builder:    NewRequestBuilder(model, prompt),
		logger:     logging.GetLogger("llm"),
	}
}

// Endpoint returns the full completions URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Convert sends source to the API using credential and returns the generated
// code with code fences removed. Any transport error or non-200 status is
// returned as an ErrAPI error.
func (c *Client) Convert(ctx context.Context, credential, filename, source string) (string, error) {
	body, err := json.Marshal(c.builder.Build(filename, source))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrAPI, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrAPI, "request for %s failed", filename)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("file", filename).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("API response")

	if !IsSuccess(resp.StatusCode) {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", errors.Newf(errors.ErrAPI, "API error %d (%s): %s",
			resp.StatusCode, GetErrorMessage(resp.StatusCode), strings.TrimSpace(string(snippet))).
			WithDetail("status", resp.StatusCode)
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrap(err, errors.ErrAPI, "failed to decode response")
	}

	if len(result.Choices) == 0 {
		return "", errors.New(errors.ErrAPI, "response contained no choices")
	}

	return StripFences(result.Choices[0].Message.Content), nil
}

func (c *Client) String() string {
	return fmt.Sprintf("llm(%s, %s)", c.endpoint, c.builder.Model)
}
