package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxt2Img(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sdapi/v1/txt2img", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"images":["aGVsbG8="],"parameters":{"steps":20},"info":"{}"}`))
	}))
	defer server.Close()

	client := NewClient(WithHTTPClient(server.Client()))
	resp, err := client.Txt2Img(context.Background(), server.URL+"/", "a lighthouse", Txt2ImgRequest{Steps: 20})
	require.NoError(t, err)

	assert.Equal(t, []string{"aGVsbG8="}, resp.Images)
	assert.Equal(t, float64(20), resp.Parameters["steps"])
	assert.Equal(t, "a lighthouse", got["prompt"])
	assert.NotContains(t, got, "width")
}

func TestTxt2Img_ExplicitPromptWins(t *testing.T) {
	var got Txt2ImgRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"images":[]}`))
	}))
	defer server.Close()

	_, err := NewClient().Txt2Img(context.Background(), server.URL, "default", Txt2ImgRequest{Prompt: "a ship"})
	require.NoError(t, err)
	assert.Equal(t, "a ship", got.Prompt)
}

func TestTxt2Img_Errors(t *testing.T) {
	_, err := NewClient().Txt2Img(context.Background(), "  ", "p", Txt2ImgRequest{})
	assert.ErrorIs(t, err, ErrNoAPIURL)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err = NewClient().Txt2Img(context.Background(), server.URL, "p", Txt2ImgRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "model not loaded")
}
