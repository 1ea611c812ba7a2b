package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"ridedesk/internal/config"
)

var (
	ErrEmptyResponse = errors.New("model returned no content")
	ErrModelDisabled = errors.New("model api key missing")
)

// Part is a piece of a model request: text or an inline image.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

type GenerateRequest struct {
	Parts  []Part
	Schema map[string]any
}

// Model is a hosted generative model that answers with JSON matching the request schema.
type Model interface {
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
}

// GeminiClient answers through the Gemini API. Without an API key every call
// fails with ErrModelDisabled.
type GeminiClient struct {
	models *genai.Models
	model  string
}

func NewGeminiClient(ctx context.Context, cfg config.ModelConfig, httpClient *http.Client) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return &GeminiClient{model: cfg.Name}, nil
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.Endpoint,
			APIVersion: "v1beta",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init model client: %w", err)
	}
	return &GeminiClient{models: client.Models, model: cfg.Name}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) ([]byte, error) {
	if c.models == nil {
		return nil, ErrModelDisabled
	}

	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if len(p.Data) > 0 {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}

	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}
	if len(req.Schema) > 0 {
		schema, err := responseSchema(req.Schema)
		if err != nil {
			return nil, err
		}
		genCfg.ResponseSchema = schema
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("model request: %w", err)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, fmt.Errorf("model blocked prompt: %s", fb.BlockReason)
	}
	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return []byte(text), nil
}

// responseSchema converts a prompt's schema document into the SDK type.
func responseSchema(doc map[string]any) (*genai.Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode response schema: %w", err)
	}
	var schema genai.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("decode response schema: %w", err)
	}
	return &schema, nil
}
