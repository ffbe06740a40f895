package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wxmp-assistant/relay/internal/upstream"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

type OpenAIConfig struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
	// Client defaults to a client without a timeout; the relay does not
	// bound provider calls.
	Client *http.Client
}

// OpenAIProvider speaks the OpenAI chat completions protocol, which every
// registry provider exposes.
type OpenAIProvider struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = registry["openai"].BaseURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	name := cfg.Name
	if name == "" {
		name = "openai"
	}
	return &OpenAIProvider{
		name:    name,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	if p.apiKey == "" {
		return "", upstream.Configuration(MessageMissingAPIKey)
	}
	if p.model == "" {
		return "", upstream.Configuration(MessageMissingEndpoint)
	}
	body, err := json.Marshal(chatRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", upstream.FromResponse(p.name, resp)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", &upstream.ProviderError{Provider: p.name, Status: resp.StatusCode, Message: "empty response"}
	}
	return parsed.Choices[0].Message.Content, nil
}
