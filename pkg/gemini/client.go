package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
)

// Client is a types.Completer backed by the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

var _ types.Completer = (*Client)(nil)

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParams, "gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBackendUnavailable, "create gemini client failed", err)
	}
	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	model := c.client.GenerativeModel(c.model)
	configure(model, req)

	resp, err := model.GenerateContent(ctx, parts(req)...)
	if err != nil {
		log.GetLogger().Warn("gemini generate content failed", zap.String("model", c.model), zap.Error(err))
		return "", classify(err)
	}

	text := responseText(resp)
	if text == "" {
		return "", apperrors.New(apperrors.CodeMalformedResponse, "gemini returned no text")
	}
	return text, nil
}

func configure(model *genai.GenerativeModel, req types.CompletionRequest) {
	model.SetTemperature(0)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if req.Format != types.FormatText {
		model.ResponseMIMEType = "application/json"
		if req.Schema != nil {
			model.ResponseSchema = ToSchema(req.Schema)
		}
	}
}

func parts(req types.CompletionRequest) []genai.Part {
	out := make([]genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		mime := img.MIME
		if !strings.HasPrefix(mime, "image/") {
			mime = "image/png"
		}
		out = append(out, genai.Blob{MIMEType: mime, Data: img.Data})
	}
	return append(out, genai.Text(req.Prompt))
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

var schemaTypes = map[string]genai.Type{
	"object":  genai.TypeObject,
	"array":   genai.TypeArray,
	"string":  genai.TypeString,
	"integer": genai.TypeInteger,
	"number":  genai.TypeNumber,
	"boolean": genai.TypeBoolean,
}

// ToSchema converts a JSON-schema-like map into a genai.Schema. Only the
// keys used by the recognition schemas are understood.
func ToSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok {
		s.Type = schemaTypes[t]
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if n, ok := m["nullable"].(bool); ok {
		s.Nullable = n
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = ToSchema(items)
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for k, v := range props {
			if child, ok := v.(map[string]any); ok {
				s.Properties[k] = ToSchema(child)
			}
		}
	}
	if req, ok := m["required"].([]string); ok {
		s.Required = append([]string(nil), req...)
	}
	return s
}

func classify(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return apperrors.Wrap(apperrors.CodeRecognitionFailed, "gemini blocked the request", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return apperrors.Wrap(apperrors.CodeRateLimited, "gemini rate limited", err)
		case apiErr.Code >= 500:
			return apperrors.Wrap(apperrors.CodeBackendUnavailable, "gemini unavailable", err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return apperrors.Wrap(apperrors.CodeInvalidParams, "gemini rejected credentials", err)
		}
		return apperrors.Wrap(apperrors.CodeRecognitionFailed, "gemini request failed", err)
	}
	return apperrors.Wrap(apperrors.CodeBackendUnavailable, "gemini call failed", err)
}
