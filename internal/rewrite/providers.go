package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"autoblog/internal/model"
)

func newJSONRequest(ctx context.Context, endpoint string, payload any) (*http.Request, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAI talks to the chat completions API.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{apiKey: apiKey, model: model, baseURL: "https://api.openai.com"}
}

func (p *OpenAI) Kind() model.ProviderKind { return model.ProviderOpenAI }

func (p *OpenAI) NewRequest(ctx context.Context, prompt string) (*http.Request, error) {
	if p.apiKey == "" {
		return nil, ErrMissingCredentials
	}
	req, err := newJSONRequest(ctx, p.baseURL+"/v1/chat/completions", map[string]any{
		"model":    p.model,
		"messages": []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	return req, nil
}

func (p *OpenAI) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Gemini talks to the Generative Language generateContent API.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
}

// NewGemini creates a Gemini provider.
func NewGemini(apiKey, model string) *Gemini {
	return &Gemini{apiKey: apiKey, model: model, baseURL: "https://generativelanguage.googleapis.com"}
}

func (p *Gemini) Kind() model.ProviderKind { return model.ProviderGemini }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

func (p *Gemini) NewRequest(ctx context.Context, prompt string) (*http.Request, error) {
	if p.apiKey == "" {
		return nil, ErrMissingCredentials
	}
	endpoint := p.baseURL + "/v1beta/models/" + url.PathEscape(p.model) + ":generateContent"
	req, err := newJSONRequest(ctx, endpoint, map[string]any{
		"contents": []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", p.apiKey)
	return req, nil
}

func (p *Gemini) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// Anthropic talks to the Messages API.
type Anthropic struct {
	apiKey  string
	model   string
	baseURL string
}

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(apiKey, model string) *Anthropic {
	return &Anthropic{apiKey: apiKey, model: model, baseURL: "https://api.anthropic.com"}
}

func (p *Anthropic) Kind() model.ProviderKind { return model.ProviderAnthropic }

func (p *Anthropic) NewRequest(ctx context.Context, prompt string) (*http.Request, error) {
	if p.apiKey == "" {
		return nil, ErrMissingCredentials
	}
	req, err := newJSONRequest(ctx, p.baseURL+"/v1/messages", map[string]any{
		"model":      p.model,
		"max_tokens": 4096,
		"messages":   []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	return req, nil
}

func (p *Anthropic) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text content")
	}
	return strings.Join(parts, ""), nil
}
