package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/pkg/errors"
)

// transport performs the JSON request/response exchanges shared by the
// HTTP-speaking backends
type transport struct {
	client *http.Client
	tag    string
}

func (t *transport) postJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req, headers, out)
}

func (t *transport) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	return t.do(req, headers, out)
}

func (t *transport) do(req *http.Request, headers map[string]string, out any) error {
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		log.Printf("[%s] Request failed method=%s url=%s err=%v", t.tag, req.Method, req.URL.Redacted(), err)
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return t.handleError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

// handleError processes error responses from the backend
func (t *transport) handleError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	logBody := bodyStr
	if len(logBody) > 500 {
		logBody = logBody[:500] + "..."
	}
	log.Printf("[%s] API Error status=%d body=%s", t.tag, resp.StatusCode, logBody)

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    bodyStr,
	}
}
