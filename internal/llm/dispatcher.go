// Package llm dispatches completion requests to the configured inference
// backend. Every backend kind is a Backend variant built from the session's
// connection info on each call.
package llm

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"construct-chat/internal/models"
)

const defaultTimeout = 2 * time.Minute

// minEndpointLength is the shortest normalized endpoint accepted
const minEndpointLength = 3

// ConnectionSource supplies the current connection info and sampler settings
type ConnectionSource interface {
	Connection() models.Connection
	GenerationSettings() (models.GenerationSettings, bool)
}

// Dispatcher resolves the configured backend and runs generation calls
type Dispatcher struct {
	source ConnectionSource
	cfg    backendConfig
}

// DispatcherOption configures the dispatcher
type DispatcherOption func(*Dispatcher)

// WithHTTPClient sets a custom HTTP client for all backends
func WithHTTPClient(httpClient *http.Client) DispatcherOption {
	return func(d *Dispatcher) {
		d.cfg.httpClient = httpClient
	}
}

// WithHordeURL overrides the AI Horde API root
func WithHordeURL(url string) DispatcherOption {
	return func(d *Dispatcher) {
		d.cfg.hordeURL = url
	}
}

// WithPollInterval sets how often async jobs are polled
func WithPollInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.cfg.pollInterval = interval
	}
}

// WithPollTimeout bounds how long an async job may be polled
func WithPollTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.cfg.pollTimeout = timeout
	}
}

// WithOpenAIBaseURL overrides the hosted OpenAI API root used by OAI
func WithOpenAIBaseURL(url string) DispatcherOption {
	return func(d *Dispatcher) {
		d.cfg.openAIBaseURL = url
	}
}

// WithGenAIBaseURL overrides the Gemini API root used by PaLM
func WithGenAIBaseURL(url string) DispatcherOption {
	return func(d *Dispatcher) {
		d.cfg.genAIBaseURL = url
	}
}

// NewDispatcher creates a dispatcher reading its configuration from source
func NewDispatcher(source ConnectionSource, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		source: source,
		cfg: backendConfig{
			httpClient:   &http.Client{Timeout: defaultTimeout},
			hordeURL:     DefaultHordeURL,
			pollInterval: defaultPollInterval,
			pollTimeout:  defaultPollTimeout,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Backend resolves the currently configured backend variant.
// It fails with ErrInvalidEndpoint or ErrUnknownBackend. Horde keys are not
// length checked.
func (d *Dispatcher) Backend() (Backend, error) {
	conn := d.source.Connection()
	if conn.EndpointType == models.EndpointHorde {
		// the endpoint is the Horde API key; empty means anonymous
		return newBackend(conn, strings.TrimSpace(conn.Endpoint), d.cfg)
	}
	endpoint := NormalizeEndpoint(conn.Endpoint)
	if len(endpoint) < minEndpointLength {
		return nil, errors.Wrapf(ErrInvalidEndpoint, "endpoint %q", conn.Endpoint)
	}
	return newBackend(conn, endpoint, d.cfg)
}

// Generate runs one completion for charName. Configuration problems return
// ErrInvalidEndpoint or ErrUnknownBackend; every backend failure is a
// *GenerationError matching ErrNoGeneration.
func (d *Dispatcher) Generate(ctx context.Context, prompt, userLabel, charName string, stopList []string) ([]string, error) {
	backend, err := d.Backend()
	if err != nil {
		log.Printf("[Dispatcher] Generate rejected err=%v", err)
		return nil, err
	}

	settings, stopBrackets := d.source.GenerationSettings()
	req := Request{
		Prompt:    prompt,
		CharName:  charName,
		UserLabel: userLabel,
		Stops:     BuildStops(userLabel, stopList, stopBrackets),
		Settings:  settings.Resolve(),
	}

	start := time.Now()
	log.Printf("[Dispatcher] Generate started endpoint_type=%s char=%q prompt_length=%d", backend.Kind(), charName, len(prompt))

	results, err := backend.Generate(ctx, req)
	if err != nil {
		log.Printf("[Dispatcher] Generate failed endpoint_type=%s duration=%v err=%v", backend.Kind(), time.Since(start), err)
		return nil, &GenerationError{Backend: backend.Kind(), Err: err}
	}
	if len(results) == 0 {
		return nil, &GenerationError{Backend: backend.Kind(), Err: errors.New("empty results")}
	}

	log.Printf("[Dispatcher] Generate completed endpoint_type=%s duration=%v results=%d", backend.Kind(), time.Since(start), len(results))
	return results, nil
}

// Status probes the configured backend
func (d *Dispatcher) Status(ctx context.Context) (string, error) {
	backend, err := d.Backend()
	if err != nil {
		return "", err
	}
	status, err := backend.Status(ctx)
	if err != nil {
		log.Printf("[Dispatcher] Status failed endpoint_type=%s err=%v", backend.Kind(), err)
		return "", err
	}
	return status, nil
}
