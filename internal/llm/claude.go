package llm

import (
	"context"

	"github.com/pkg/errors"

	"construct-chat/internal/models"
)

const modelProxyClaude = "claude-1.3-100k"

// claudeBackend talks to a Claude text-completion reverse proxy
type claudeBackend struct {
	transport *transport
	baseURL   string
	apiKey    string
}

type claudeRequest struct {
	Prompt            string   `json:"prompt"`
	Model             string   `json:"model"`
	Temperature       float64  `json:"temperature"`
	MaxTokensToSample int      `json:"max_tokens_to_sample"`
	StopSequences     []string `json:"stop_sequences"`
}

type claudeResponse struct {
	Completion string `json:"completion"`
	Choices    []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (b *claudeBackend) Kind() models.EndpointType { return models.EndpointProxyClaude }

func claudePrompt(req Request) string {
	return "System:\n" + renderTemplate(req.CharName, req.UserLabel) + "\n" + req.Prompt +
		"\nAssistant:\n Okay, here is my response as " + req.CharName + ":\n"
}

func (b *claudeBackend) Generate(ctx context.Context, req Request) ([]string, error) {
	body := claudeRequest{
		Prompt:            claudePrompt(req),
		Model:             modelProxyClaude,
		Temperature:       req.Settings.Temperature,
		MaxTokensToSample: req.Settings.MaxTokens,
		StopSequences:     []string{":[USER]", "Assistant:", "User:", req.UserLabel + ":", "System:"},
	}
	headers := map[string]string{"x-api-key": b.apiKey}

	var resp claudeResponse
	if err := b.transport.postJSON(ctx, joinURL(b.baseURL, "complete"), headers, body, &resp); err != nil {
		return nil, err
	}
	switch {
	case resp.Completion != "":
		return []string{resp.Completion}, nil
	case len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "":
		return []string{resp.Choices[0].Message.Content}, nil
	}
	return nil, errors.New("completion has no content")
}

func (b *claudeBackend) Status(context.Context) (string, error) {
	return "", ErrStatusUnsupported
}
