package llm

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"

	"construct-chat/internal/models"
)

const (
	// DefaultHordeURL is the public AI Horde API root
	DefaultHordeURL = "https://aihorde.net/api/"
	// AnonymousHordeKey is used when no API key is configured
	AnonymousHordeKey = "0000000000"

	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 5 * time.Minute
)

// hordeBackend submits async jobs to the AI Horde and polls for the result
type hordeBackend struct {
	transport *transport
	baseURL   string
	apiKey    string
	model     string
	interval  time.Duration
	timeout   time.Duration
}

type hordeRequest struct {
	Prompt string                  `json:"prompt"`
	Params models.ResolvedSettings `json:"params"`
	Models []string                `json:"models,omitempty"`
}

type hordeSubmitResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type hordeStatusResponse struct {
	Done        bool  `json:"done"`
	Faulted     bool  `json:"faulted"`
	IsPossible  *bool `json:"is_possible"`
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
}

func newHordeBackend(t *transport, cfg backendConfig, apiKey, model string) *hordeBackend {
	if apiKey == "" {
		apiKey = AnonymousHordeKey
	}
	b := &hordeBackend{
		transport: t,
		baseURL:   cfg.hordeURL,
		apiKey:    apiKey,
		model:     model,
		interval:  cfg.pollInterval,
		timeout:   cfg.pollTimeout,
	}
	if b.baseURL == "" {
		b.baseURL = DefaultHordeURL
	}
	if b.interval <= 0 {
		b.interval = defaultPollInterval
	}
	if b.timeout <= 0 {
		b.timeout = defaultPollTimeout
	}
	return b
}

func (b *hordeBackend) Kind() models.EndpointType { return models.EndpointHorde }

func (b *hordeBackend) headers() map[string]string {
	return map[string]string{"apikey": b.apiKey}
}

func (b *hordeBackend) Generate(ctx context.Context, req Request) ([]string, error) {
	body := hordeRequest{Prompt: req.Prompt, Params: req.Settings}
	if b.model != "" {
		body.Models = []string{b.model}
	}

	var submitted hordeSubmitResponse
	if err := b.transport.postJSON(ctx, joinURL(b.baseURL, "v2/generate/text/async"), b.headers(), body, &submitted); err != nil {
		return nil, err
	}
	if submitted.ID == "" {
		return nil, errors.Errorf("horde returned no job id: %s", submitted.Message)
	}
	log.Printf("[Horde] Job submitted id=%s model=%q", submitted.ID, b.model)

	return b.waitForJob(ctx, submitted.ID)
}

// waitForJob polls the job status every interval until it is done, the poll
// timeout elapses or ctx is cancelled
func (b *hordeBackend) waitForJob(ctx context.Context, id string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	pollCount := 0
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				log.Printf("[Horde] Poll timeout id=%s poll_count=%d", id, pollCount)
				return nil, errors.Wrapf(ErrPollTimeout, "job %s after %v", id, b.timeout)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}

		pollCount++
		var status hordeStatusResponse
		if err := b.transport.getJSON(ctx, joinURL(b.baseURL, "v2/generate/text/status/"+id), b.headers(), &status); err != nil {
			return nil, err
		}

		if status.Faulted {
			return nil, errors.Errorf("horde job %s faulted", id)
		}
		if status.IsPossible != nil && !*status.IsPossible {
			return nil, errors.Errorf("horde job %s cannot be served by any worker", id)
		}
		if !status.Done {
			log.Printf("[Horde] Polling id=%s poll_count=%d", id, pollCount)
			continue
		}
		if len(status.Generations) == 0 {
			return nil, errors.Errorf("horde job %s finished without generations", id)
		}
		log.Printf("[Horde] Job completed id=%s poll_count=%d", id, pollCount)
		return []string{status.Generations[0].Text}, nil
	}
}

func (b *hordeBackend) Status(ctx context.Context) (string, error) {
	if err := b.transport.getJSON(ctx, joinURL(b.baseURL, "v2/status/heartbeat"), nil, nil); err != nil {
		return "", err
	}
	return "Horde heartbeat is steady.", nil
}
