package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"construct-chat/internal/models"
)

type koboldBackend struct {
	transport *transport
	baseURL   string
}

type koboldRequest struct {
	models.ResolvedSettings
	Prompt       string   `json:"prompt"`
	StopSequence []string `json:"stop_sequence"`
	Frmtrmblln   bool     `json:"frmtrmblln"`
}

type resultsResponse struct {
	Results []struct {
		Text string `json:"text"`
	} `json:"results"`
}

func (b *koboldBackend) Kind() models.EndpointType { return models.EndpointKobold }

func (b *koboldBackend) Generate(ctx context.Context, req Request) ([]string, error) {
	body := koboldRequest{
		ResolvedSettings: req.Settings,
		Prompt:           req.Prompt,
		StopSequence:     req.Stops,
		Frmtrmblln:       true,
	}

	var raw json.RawMessage
	if err := b.transport.postJSON(ctx, joinURL(b.baseURL, "api/v1/generate"), nil, body, &raw); err != nil {
		return nil, err
	}
	return decodeKoboldResults(raw)
}

// decodeKoboldResults accepts either {"results":[{"text":...}]} or a bare
// list of strings, which is joined with single spaces.
func decodeKoboldResults(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil, errors.New("empty result list")
		}
		return []string{strings.Join(list, " ")}, nil
	}

	var resp resultsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to decode results")
	}
	if len(resp.Results) == 0 {
		return nil, errors.New("response has no results")
	}
	texts := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		texts[i] = r.Text
	}
	return texts, nil
}

func (b *koboldBackend) Status(ctx context.Context) (string, error) {
	return modelStatus(ctx, b.transport, b.baseURL)
}

// modelStatus asks a local backend which model it has loaded
func modelStatus(ctx context.Context, t *transport, baseURL string) (string, error) {
	var resp struct {
		Result string `json:"result"`
	}
	if err := t.getJSON(ctx, joinURL(baseURL, "api/v1/model"), nil, &resp); err != nil {
		return "", err
	}
	return resp.Result, nil
}
