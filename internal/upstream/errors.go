// Package upstream holds the error taxonomy shared by every third-party call
// the relay makes: chat completion and image search providers.
package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ConfigurationError means the user has not configured something the
// operation needs. Its message is shown to the user verbatim.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func Configuration(message string) error {
	return &ConfigurationError{Message: message}
}

// ProviderError is a non-success reply from a third-party API.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 << 10

// FromResponse builds a ProviderError for a failed response, preferring the
// provider's own message when the body is JSON.
func FromResponse(provider string, resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := extractMessage(body)
	if message == "" {
		message = fmt.Sprintf("request failed: %d", resp.StatusCode)
	}
	return &ProviderError{Provider: provider, Status: resp.StatusCode, Message: message}
}

// extractMessage understands the OpenAI-style {"error":{"message"}} shape as
// well as flat {"error":"..."} and {"message":"..."} bodies.
func extractMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch value := payload["error"].(type) {
	case map[string]any:
		if message, ok := value["message"].(string); ok && strings.TrimSpace(message) != "" {
			return message
		}
	case string:
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	if message, ok := payload["message"].(string); ok && strings.TrimSpace(message) != "" {
		return message
	}
	if errorsList, ok := payload["errors"].([]any); ok && len(errorsList) > 0 {
		if message, ok := errorsList[0].(string); ok {
			return message
		}
	}
	return ""
}
