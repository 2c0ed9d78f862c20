// Package genclient talks to the image generation endpoint: it submits
// prompts, polls pending requests and downloads finished images.
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const generatePath = "/api/generate"

type Image struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type Result struct {
	Data    []Image `json:"data"`
	Created int64   `json:"created"`
}

// SubmitResponse is either a finished Result or a pending acknowledgement.
type SubmitResponse struct {
	RequestID string
	Pending   bool
	Result    *Result
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends the bearer token issued by the server's -issue-token flag.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitBody struct {
	Prompt    string `json:"prompt"`
	RequestID string `json:"requestId,omitempty"`
}

type pendingBody struct {
	Status    string `json:"status"`
	RequestID string `json:"requestId"`
}

// Submit posts the prompt once. A non-2xx answer is returned as *APIError.
func (c *Client) Submit(ctx context.Context, prompt, requestID string) (*SubmitResponse, error) {
	payload, err := json.Marshal(submitBody{Prompt: prompt, RequestID: requestID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	id := resp.Header.Get("X-Request-ID")
	if id == "" {
		id = requestID
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var result Result
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		return &SubmitResponse{RequestID: id, Result: &result}, nil
	case http.StatusAccepted:
		var p pendingBody
		if err := json.Unmarshal(body, &p); err == nil && p.RequestID != "" {
			id = p.RequestID
		}
		return &SubmitResponse{RequestID: id, Pending: true}, nil
	default:
		return nil, decodeAPIError(resp.StatusCode, body)
	}
}

// Download streams the image at url into w.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &APIError{Status: resp.StatusCode, Message: "image download failed: " + resp.Status}
	}
	return io.Copy(w, resp.Body)
}
