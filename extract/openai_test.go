package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Extract(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"# Page\nText"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(Options{APIKey: "sk-test", BaseURL: srv.URL})
	text, err := c.Extract(context.Background(), Request{
		Image:       []byte{1, 2, 3},
		MIMEType:    "image/jpeg",
		Prompt:      "transcribe",
		Temperature: 0.4,
		MaxTokens:   5000,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Page\nText", text)

	assert.Equal(t, DefaultModel, got["model"])
	assert.EqualValues(t, 5000, got["max_tokens"])
	assert.InDelta(t, 0.4, got["temperature"], 1e-9)
	assert.Equal(t, []any{}, got["tools"])

	messages := got["messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	parts := msg["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[0].(map[string]any)
	assert.Equal(t, "image_url", image["type"])
	assert.Equal(t, "data:image/jpeg;base64,AQID", image["image_url"].(map[string]any)["url"])
	text2 := parts[1].(map[string]any)
	assert.Equal(t, "text", text2["type"])
	assert.Equal(t, "transcribe", text2["text"])
}

func TestOpenAIClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(Options{APIKey: "bad", BaseURL: srv.URL}).Extract(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, "OpenAI API error: Incorrect API key provided", err.Error())
}

func TestOpenAIClient_ErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(Options{BaseURL: srv.URL}).Extract(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(Options{BaseURL: srv.URL}).Extract(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQID", DataURL("", []byte{1, 2, 3}))
}
