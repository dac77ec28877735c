package llm

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"construct-chat/internal/models"
)

// palmModel is served through the Gemini API, which accepts PaLM-era keys
const palmModel = "gemini-2.0-flash"

const maxPalmStops = 5

// palmBackend is best effort: every failure is reported as no generation
type palmBackend struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func (b *palmBackend) Kind() models.EndpointType { return models.EndpointPaLM }

func (b *palmBackend) Generate(ctx context.Context, req Request) ([]string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      b.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  b.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: b.baseURL},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}

	stops := req.Stops
	if len(stops) > maxPalmStops {
		stops = stops[:maxPalmStops]
	}
	temperature := float32(req.Settings.Temperature)
	res, err := client.Models.GenerateContent(ctx, palmModel, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.Settings.MaxLength),
		StopSequences:   stops,
	})
	if err != nil {
		return nil, errors.Wrap(err, "generate content failed")
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("response has no candidates")
	}
	return []string{res.Candidates[0].Content.Parts[0].Text}, nil
}

func (b *palmBackend) Status(context.Context) (string, error) {
	return "", ErrStatusUnsupported
}
