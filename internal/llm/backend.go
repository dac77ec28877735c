package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"construct-chat/internal/models"
)

// Request is one generation call after the dispatcher's shared pre-step
type Request struct {
	Prompt    string
	CharName  string
	UserLabel string
	Stops     []string
	Settings  models.ResolvedSettings
}

// Backend is one inference backend variant
type Backend interface {
	Kind() models.EndpointType
	Generate(ctx context.Context, req Request) ([]string, error)
	Status(ctx context.Context) (string, error)
}

// backendConfig carries the shared transport settings handed to every variant
type backendConfig struct {
	httpClient    *http.Client
	hordeURL      string
	openAIBaseURL string
	genAIBaseURL  string
	pollInterval  time.Duration
	pollTimeout   time.Duration
}

// newBackend maps stored connection info onto exactly one backend variant.
// endpoint must already be normalized.
func newBackend(conn models.Connection, endpoint string, cfg backendConfig) (Backend, error) {
	t := &transport{client: cfg.httpClient, tag: string(conn.EndpointType)}

	switch conn.EndpointType {
	case models.EndpointKobold:
		return &koboldBackend{transport: t, baseURL: endpoint}, nil
	case models.EndpointOoba:
		return &oobaBackend{transport: t, baseURL: endpoint}, nil
	case models.EndpointOAI:
		return newOpenAIBackend(models.EndpointOAI, cfg.openAIBaseURL, endpoint, modelOAI, cfg.httpClient), nil
	case models.EndpointProxyOAI:
		return newOpenAIBackend(models.EndpointProxyOAI, endpoint, conn.Password, modelProxyOAI, cfg.httpClient), nil
	case models.EndpointProxyClaude:
		return &claudeBackend{transport: t, baseURL: endpoint, apiKey: conn.Password}, nil
	case models.EndpointHorde:
		return newHordeBackend(t, cfg, endpoint, conn.HordeModel), nil
	case models.EndpointPaLM:
		return &palmBackend{apiKey: endpoint, baseURL: cfg.genAIBaseURL, httpClient: cfg.httpClient}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", conn.EndpointType)
	}
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
