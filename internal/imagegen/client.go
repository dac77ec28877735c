// Package imagegen is a thin client for the Stable Diffusion web UI API
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrNoAPIURL is returned when no Stable Diffusion URL is configured
var ErrNoAPIURL = errors.New("stable diffusion api url is not configured")

// Txt2ImgRequest is the body of a txt2img call. Zero fields are left to the
// server's defaults.
type Txt2ImgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Steps          int     `json:"steps,omitempty"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	CFGScale       float64 `json:"cfg_scale,omitempty"`
	SamplerName    string  `json:"sampler_name,omitempty"`
	Seed           int64   `json:"seed,omitempty"`
	BatchSize      int     `json:"batch_size,omitempty"`
}

// Txt2ImgResponse carries base64 encoded images
type Txt2ImgResponse struct {
	Images     []string       `json:"images"`
	Parameters map[string]any `json:"parameters"`
	Info       string         `json:"info"`
}

// APIError represents a non-success response from the image server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stable diffusion API error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to a Stable Diffusion server
type Client struct {
	httpClient *http.Client
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient creates a client. Image generation is slow, so the default
// timeout is generous.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Txt2Img posts req to {apiURL}/sdapi/v1/txt2img. An empty prompt is
// replaced by defaultPrompt.
func (c *Client) Txt2Img(ctx context.Context, apiURL, defaultPrompt string, req Txt2ImgRequest) (*Txt2ImgResponse, error) {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" {
		return nil, ErrNoAPIURL
	}
	if strings.TrimSpace(req.Prompt) == "" {
		req.Prompt = defaultPrompt
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/sdapi/v1/txt2img", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log.Printf("[ImageGen] txt2img started url=%s steps=%d", apiURL, req.Steps)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send data")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("[ImageGen] API Error status=%d", resp.StatusCode)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var out Txt2ImgResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}
	log.Printf("[ImageGen] txt2img finished images=%d", len(out.Images))
	return &out, nil
}
