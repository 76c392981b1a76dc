// Package gemini implements the wire protocol of the Google generative
// language endpoint: request envelope, credential-as-query-parameter
// auth, and extraction of the model text from the response envelope.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 60 * time.Second
)

// ErrNetwork wraps transport-level failures reaching the endpoint.
var ErrNetwork = errors.New("network failure")

// ErrMalformedResponse is returned when a success envelope is missing the
// model output text.
var ErrMalformedResponse = errors.New("malformed response envelope")

// StatusError is returned for a non-success HTTP status. Detail carries
// the server-provided message when one could be read from the error body;
// it is intended for logs, not for users.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("endpoint returned HTTP %d", e.Code)
	}
	return fmt.Sprintf("endpoint returned HTTP %d: %s", e.Code, e.Detail)
}

// Client communicates with the generative language API.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a client for the public endpoint.
func NewClient(model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: defaultBaseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(model, baseURL string) *Client {
	c := NewClient(model)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// request/response envelopes per the generateContent wire format.

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateContent sends prompt to the model and returns its raw text
// output. The credential is passed as a query parameter. Failures map to
// the package error kinds: ErrNetwork for transport errors, *StatusError
// for non-2xx responses, ErrMalformedResponse when the success envelope
// carries no text.
func (c *Client) GenerateContent(ctx context.Context, apiKey, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Code: resp.StatusCode, Detail: readErrorDetail(resp.Body)}
	}

	var envelope generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidate text", ErrMalformedResponse)
	}
	text := envelope.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("%w: empty candidate text", ErrMalformedResponse)
	}
	return text, nil
}

// readErrorDetail extracts the server message from an error body.
// Best-effort: any read or parse failure just yields an empty detail.
func readErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 8<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}
