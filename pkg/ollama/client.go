package ollama

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"skillscan/config"
	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
)

const DefaultBaseURL = "http://127.0.0.1:11434"

type message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   any            `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message    message `json:"message"`
	Done       bool    `json:"done"`
	DoneReason string  `json:"done_reason"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client is a types.Completer for a local Ollama server's /api/chat.
type Client struct {
	client *resty.Client
	model  string
	numCtx int
}

var _ types.Completer = (*Client)(nil)

func NewClient(baseUrl, model string, numCtx int) *Client {
	if baseUrl == "" {
		baseUrl = DefaultBaseURL
	}
	client := resty.New().SetBaseURL(strings.TrimRight(baseUrl, "/")).
		SetHeader("Content-Type", "application/json")
	if config.Conf.App.ParsedProxy != nil && !isLocal(baseUrl) {
		client.SetProxy(config.Conf.App.ParsedProxy.String())
	}
	return &Client{client: client, model: model, numCtx: numCtx}
}

func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	body := c.buildRequest(req)

	var out chatResponse
	var apiErr errorResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/chat")
	if err != nil {
		log.GetLogger().Warn("ollama request failed", zap.String("model", c.model), zap.Error(err))
		return "", apperrors.Wrap(apperrors.CodeBackendUnavailable, "ollama unreachable", err)
	}

	if resp.IsError() {
		detail := apiErr.Error
		if detail == "" {
			detail = resp.String()
		}
		log.GetLogger().Warn("ollama returned error",
			zap.String("model", c.model),
			zap.Int("status", resp.StatusCode()),
			zap.String("error", detail))
		switch {
		case resp.StatusCode() == http.StatusTooManyRequests:
			return "", apperrors.WrapWithDetail(apperrors.CodeRateLimited, "ollama rate limited", detail, nil)
		case resp.StatusCode() >= 500:
			return "", apperrors.WrapWithDetail(apperrors.CodeBackendUnavailable, "ollama server error", detail, nil)
		case resp.StatusCode() == http.StatusNotFound:
			return "", apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "ollama model not found", detail, nil)
		}
		return "", apperrors.WrapWithDetail(apperrors.CodeRecognitionFailed, "ollama request rejected", detail, nil)
	}

	if out.Message.Content == "" {
		return "", apperrors.New(apperrors.CodeMalformedResponse, "ollama returned empty content")
	}
	return out.Message.Content, nil
}

func (c *Client) buildRequest(req types.CompletionRequest) chatRequest {
	var msgs []message
	if req.System != "" {
		msgs = append(msgs, message{Role: "system", Content: req.System})
	}
	user := message{Role: "user", Content: req.Prompt}
	for _, img := range req.Images {
		user.Images = append(user.Images, base64.StdEncoding.EncodeToString(img.Data))
	}
	msgs = append(msgs, user)

	options := map[string]any{"temperature": 0}
	if c.numCtx > 0 {
		options["num_ctx"] = c.numCtx
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	out := chatRequest{Model: c.model, Messages: msgs, Stream: false, Options: options}
	switch {
	case req.Schema != nil:
		out.Format = jsonSchema(req.Schema)
	case req.Format != types.FormatText:
		out.Format = "json"
	}
	return out
}

// jsonSchema rewrites {"type": T, "nullable": true} into the standard
// {"type": [T, "null"]} form understood by Ollama's grammar builder.
func jsonSchema(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	nullable, _ := m["nullable"].(bool)
	for k, v := range m {
		switch k {
		case "nullable":
			continue
		case "properties":
			props, ok := v.(map[string]any)
			if !ok {
				out[k] = v
				continue
			}
			converted := make(map[string]any, len(props))
			for name, p := range props {
				if child, ok := p.(map[string]any); ok {
					converted[name] = jsonSchema(child)
				} else {
					converted[name] = p
				}
			}
			out[k] = converted
		case "items":
			if child, ok := v.(map[string]any); ok {
				out[k] = jsonSchema(child)
			} else {
				out[k] = v
			}
		default:
			out[k] = v
		}
	}
	if t, ok := out["type"].(string); ok && nullable {
		out["type"] = []string{t, "null"}
	}
	return out
}

func isLocal(baseUrl string) bool {
	return strings.Contains(baseUrl, "127.0.0.1") || strings.Contains(baseUrl, "localhost")
}
