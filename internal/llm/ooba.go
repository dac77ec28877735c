package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"construct-chat/internal/models"
)

type oobaBackend struct {
	transport *transport
	baseURL   string
}

type oobaRequest struct {
	Prompt                 string   `json:"prompt"`
	MaxNewTokens           int      `json:"max_new_tokens"`
	DoSample               bool     `json:"do_sample"`
	Temperature            float64  `json:"temperature"`
	TopP                   float64  `json:"top_p"`
	TypicalP               float64  `json:"typical_p"`
	RepetitionPenalty      float64  `json:"repetition_penalty"`
	RepetitionPenaltyRange int      `json:"repetition_penalty_range"`
	TopK                   int      `json:"top_k"`
	TopA                   float64  `json:"top_a"`
	Tfs                    float64  `json:"tfs"`
	MinLength              int      `json:"min_length"`
	TruncationLength       int      `json:"truncation_length"`
	AddBosToken            bool     `json:"add_bos_token"`
	BanEosToken            bool     `json:"ban_eos_token"`
	SkipSpecialTokens      bool     `json:"skip_special_tokens"`
	StoppingStrings        []string `json:"stopping_strings"`
}

func (b *oobaBackend) Kind() models.EndpointType { return models.EndpointOoba }

// sanitizeOobaPrompt removes <br> markers and collapses blank lines
func sanitizeOobaPrompt(prompt string) string {
	prompt = strings.ReplaceAll(prompt, "<br>", "")
	for strings.Contains(prompt, "\n\n") {
		prompt = strings.ReplaceAll(prompt, "\n\n", "\n")
	}
	return prompt
}

func (b *oobaBackend) Generate(ctx context.Context, req Request) ([]string, error) {
	s := req.Settings
	body := oobaRequest{
		Prompt:                 sanitizeOobaPrompt(req.Prompt),
		MaxNewTokens:           s.MaxLength,
		DoSample:               true,
		Temperature:            s.Temperature,
		TopP:                   s.TopP,
		TypicalP:               s.Typical,
		RepetitionPenalty:      s.RepPen,
		RepetitionPenaltyRange: s.RepPenRange,
		TopK:                   s.TopK,
		TopA:                   s.TopA,
		Tfs:                    s.Tfs,
		MinLength:              s.MinLength,
		TruncationLength:       s.MaxContextLength,
		AddBosToken:            true,
		BanEosToken:            false,
		SkipSpecialTokens:      true,
		StoppingStrings:        req.Stops,
	}

	var resp resultsResponse
	if err := b.transport.postJSON(ctx, joinURL(b.baseURL, "api/v1/generate"), nil, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, errors.New("response has no results")
	}
	return []string{resp.Results[0].Text}, nil
}

func (b *oobaBackend) Status(ctx context.Context) (string, error) {
	return modelStatus(ctx, b.transport, b.baseURL)
}
