package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

type recordedChat struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature *float64 `json:"temperature"`
}

func TestGroqClientComplete(t *testing.T) {
	t.Parallel()

	var received recordedChat
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/openai/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"  {\"executive_brief\":\"ok\"}\n"}}]}`))
	}))
	defer srv.Close()

	client := NewGroqClient(srv.Client(), srv.URL+"/openai/v1/", "gsk_test", "llama-3.3-70b-versatile")
	content, err := client.Complete(context.Background(), Prompt{System: "sys", User: "usr", Temperature: 0.2})
	require.NoError(t, err)
	require.Equal(t, `{"executive_brief":"ok"}`, content)

	require.Equal(t, "llama-3.3-70b-versatile", received.Model)
	require.Len(t, received.Messages, 2)
	require.Equal(t, "system", received.Messages[0].Role)
	require.Equal(t, "sys", received.Messages[0].Content)
	require.Equal(t, "user", received.Messages[1].Role)
	require.Equal(t, "usr", received.Messages[1].Content)
	require.NotNil(t, received.Temperature)
	require.InDelta(t, 0.2, *received.Temperature, 1e-6)
}

func TestGroqClientSendsZeroTemperature(t *testing.T) {
	t.Parallel()

	var received recordedChat
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	_, err := NewGroqClient(srv.Client(), srv.URL, "k", "m").Complete(context.Background(), Prompt{})
	require.NoError(t, err)
	require.NotNil(t, received.Temperature)
	require.InDelta(t, 0, *received.Temperature, 1e-6)
}

func TestGroqClientAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer srv.Close()

	_, err := NewGroqClient(srv.Client(), srv.URL, "bad", "m").Complete(context.Background(), Prompt{})
	require.ErrorContains(t, err, "chat completion")
	require.ErrorContains(t, err, "Invalid API Key")

	var apiErr *openai.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)
}

func TestGroqClientNoChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	content, err := NewGroqClient(srv.Client(), srv.URL, "k", "m").Complete(context.Background(), Prompt{})
	require.NoError(t, err)
	require.Empty(t, content)
}

func TestGroqClientBadJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	_, err := NewGroqClient(srv.Client(), srv.URL, "k", "m").Complete(context.Background(), Prompt{})
	require.ErrorContains(t, err, "chat completion")
}

func TestNewGroqClientDefaults(t *testing.T) {
	t.Parallel()

	c := NewGroqClient(nil, "", "k", "m")
	require.NotNil(t, c.client)
	require.Equal(t, "m", c.model)
}
