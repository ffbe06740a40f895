package llm

import (
	"context"
	"net/http"
	"sort"
	"strings"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// CustomProvider has no registry defaults; base URL and model come from
// settings.
const CustomProvider = "custom"

type Descriptor struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BaseURL      string `json:"baseUrl"`
	DefaultModel string `json:"defaultModel"`
}

var registry = map[string]Descriptor{
	"openai": {
		ID:           "openai",
		Name:         "OpenAI",
		BaseURL:      "https://api.openai.com/v1",
		DefaultModel: "gpt-3.5-turbo",
	},
	"deepseek": {
		ID:           "deepseek",
		Name:         "DeepSeek",
		BaseURL:      "https://api.deepseek.com/v1",
		DefaultModel: "deepseek-chat",
	},
	"moonshot": {
		ID:           "moonshot",
		Name:         "Moonshot (Kimi)",
		BaseURL:      "https://api.moonshot.cn/v1",
		DefaultModel: "moonshot-v1-8k",
	},
	"zhipu": {
		ID:           "zhipu",
		Name:         "智谱 GLM",
		BaseURL:      "https://open.bigmodel.cn/api/paas/v4",
		DefaultModel: "glm-4-flash",
	},
	"qwen": {
		ID:           "qwen",
		Name:         "通义千问",
		BaseURL:      "https://dashscope.aliyuncs.com/compatible-mode/v1",
		DefaultModel: "qwen-turbo",
	},
	"doubao": {
		ID:           "doubao",
		Name:         "豆包",
		BaseURL:      "https://ark.cn-beijing.volces.com/api/v3",
		DefaultModel: "doubao-pro-32k",
	},
}

func NormalizeProviderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup returns the registry entry for a named provider. The custom
// provider is not in the registry.
func Lookup(name string) (Descriptor, bool) {
	descriptor, ok := registry[NormalizeProviderName(name)]
	return descriptor, ok
}

// Providers lists the registry sorted by id, followed by the custom entry.
func Providers() []Descriptor {
	out := make([]Descriptor, 0, len(registry)+1)
	for _, descriptor := range registry {
		out = append(out, descriptor)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return append(out, Descriptor{ID: CustomProvider, Name: "自定义"})
}

// NewProvider builds the chat client for a resolved endpoint.
func NewProvider(endpoint Endpoint, client *http.Client) Provider {
	return NewOpenAIProvider(OpenAIConfig{
		Name:    endpoint.Provider,
		APIKey:  endpoint.APIKey,
		Model:   endpoint.Model,
		BaseURL: endpoint.BaseURL,
		Client:  client,
	})
}
