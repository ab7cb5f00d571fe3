package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillscan/internal/types"
	apperrors "skillscan/pkg/errors"
)

func TestBuildRequestWithImages(t *testing.T) {
	req := types.CompletionRequest{
		System:    "system",
		Prompt:    "prompt",
		Images:    []types.Image{{Name: "a.png", MIME: "image/png", Data: []byte{1, 2, 3}}},
		Format:    types.FormatObject,
		MaxTokens: 4096,
	}

	out := buildRequest("gpt-4o", 2048, req)
	assert.Equal(t, "gpt-4o", out.Model)
	assert.Equal(t, 2048, out.MaxTokens)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, out.Messages[0].Role)

	parts := out.Messages[1].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, "data:image/png;base64,AQID", parts[0].ImageURL.URL)
	assert.Equal(t, "prompt", parts[1].Text)
	require.NotNil(t, out.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, out.ResponseFormat.Type)
}

func TestBuildRequestTextOnlyArray(t *testing.T) {
	out := buildRequest("m", 0, types.CompletionRequest{Prompt: "match", Format: types.FormatArray, MaxTokens: 1024})
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "match", out.Messages[0].Content)
	assert.Nil(t, out.ResponseFormat)
	assert.Equal(t, 1024, out.MaxTokens)
}

func TestDataURLFallsBackToPNG(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AA==", dataURL(types.Image{MIME: "text/plain", Data: []byte{0}}))
	assert.Equal(t, "data:image/webp;base64,AA==", dataURL(types.Image{MIME: "image/webp", Data: []byte{0}}))
}

func TestCompleteAgainstServer(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"[]"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1", "key", "", "vision-model", 0)
	out, err := c.Complete(context.Background(), types.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
	assert.Equal(t, "vision-model", got.Model)
}

func TestCompleteClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1", "key", "", "m", 0)
	_, err := c.Complete(context.Background(), types.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeRateLimited, apperrors.GetCode(err))
	assert.True(t, apperrors.IsTransient(err))
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL+"/v1", "key", "", "m", 0).Complete(context.Background(), types.CompletionRequest{Prompt: "hi"})
	assert.Equal(t, apperrors.CodeMalformedResponse, apperrors.GetCode(err))
}
