package llm

import (
	"strings"

	"github.com/wxmp-assistant/relay/internal/upstream"
)

const (
	MessageMissingAPIKey   = "请先在设置中配置 API Key"
	MessageMissingEndpoint = "请先在设置中配置自定义 API 地址和模型"
)

// Selection is the provider-related subset of the user's settings.
type Selection struct {
	Provider      string
	APIKey        string
	CustomBaseURL string
	CustomModel   string
}

type Endpoint struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
}

// Resolve applies the override precedence: a non-empty custom field wins,
// otherwise the named provider's default is used. Base URL and model fall
// back independently of each other.
func Resolve(selection Selection) (Endpoint, error) {
	apiKey := strings.TrimSpace(selection.APIKey)
	if apiKey == "" {
		return Endpoint{}, upstream.Configuration(MessageMissingAPIKey)
	}
	name := NormalizeProviderName(selection.Provider)
	descriptor, _ := Lookup(name)

	baseURL := strings.TrimSpace(selection.CustomBaseURL)
	if baseURL == "" {
		baseURL = descriptor.BaseURL
	}
	model := strings.TrimSpace(selection.CustomModel)
	if model == "" {
		model = descriptor.DefaultModel
	}
	if baseURL == "" || model == "" {
		return Endpoint{}, upstream.Configuration(MessageMissingEndpoint)
	}
	return Endpoint{
		Provider: name,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Model:    model,
		APIKey:   apiKey,
	}, nil
}
