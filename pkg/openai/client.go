package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"skillscan/config"
	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
)

// Client is a types.Completer for OpenAI-compatible chat endpoints with
// vision input.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
}

var _ types.Completer = (*Client)(nil)

func NewClient(baseUrl, apiKey, proxyAddr, model string, maxTokens int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseUrl != "" {
		cfg.BaseURL = baseUrl
	}

	transport := &http.Transport{}
	if proxyAddr != "" && config.Conf.App.ParsedProxy != nil {
		transport.Proxy = http.ProxyURL(config.Conf.App.ParsedProxy)
	}
	// Per-call deadlines come from the caller's context.
	cfg.HTTPClient = &http.Client{Transport: transport}

	return &Client{client: openai.NewClientWithConfig(cfg), model: model, maxTokens: maxTokens}
}

func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	chatReq := buildRequest(c.model, c.maxTokens, req)

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		log.GetLogger().Warn("openai chat completion failed", zap.String("model", c.model), zap.Error(err))
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.New(apperrors.CodeMalformedResponse, "openai returned no choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		log.GetLogger().Warn("openai reply truncated", zap.String("model", c.model), zap.Int("max_tokens", chatReq.MaxTokens))
	}
	return choice.Message.Content, nil
}

func buildRequest(model string, maxTokens int, req types.CompletionRequest) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}

	if len(req.Images) == 0 {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})
	} else {
		parts := make([]openai.ChatMessagePart, 0, len(req.Images)+1)
		for _, img := range req.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL(img),
					Detail: openai.ImageURLDetailHigh,
				},
			})
		}
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: req.Prompt})
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
	}

	out := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0,
		MaxTokens:   req.MaxTokens,
	}
	if maxTokens > 0 && (out.MaxTokens == 0 || out.MaxTokens > maxTokens) {
		out.MaxTokens = maxTokens
	}
	// json_object mode only guarantees an object, so arrays are left free-form.
	if req.Format == types.FormatObject {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return out
}

func dataURL(img types.Image) string {
	mime := img.MIME
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.Wrap(apperrors.CodeRateLimited, "openai rate limited", err)
	case status >= 500 || status == 0:
		return apperrors.Wrap(apperrors.CodeBackendUnavailable, "openai unavailable", err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Wrap(apperrors.CodeInvalidParams, "openai rejected credentials", err)
	default:
		return apperrors.Wrap(apperrors.CodeRecognitionFailed, "openai request failed", err)
	}
}
