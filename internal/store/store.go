package store

import (
	"context"
	"encoding/json"
)

const DefaultFavoritesLimit = 100

// TimestampLayout is the millisecond ISO 8601 form used for favorite
// creation times.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	DefaultThemeColor = "#07c160"
	DefaultAIProvider = "openai"
)

// Usage counter names shown by the popup.
const (
	UsageAIRequests          = "aiRequests"
	UsageImageSearches       = "imageSearches"
	UsageFavoritesSaved      = "favoritesSaved"
	UsagePageInfoExtractions = "pageInfoExtractions"
)

// Settings is the single record written by the options page. Toggles are
// pointers so an explicit false survives read-time defaulting.
type Settings struct {
	ThemeColor           string `json:"themeColor"`
	AIProvider           string `json:"aiProvider"`
	APIKey               string `json:"apiKey"`
	CustomBaseURL        string `json:"customBaseUrl"`
	CustomModel          string `json:"customModel"`
	UnsplashKey          string `json:"unsplashKey"`
	PixabayKey           string `json:"pixabayKey"`
	ShowFloatingToolbar  *bool  `json:"showFloatingToolbar,omitempty"`
	ShowSelectionToolbar *bool  `json:"showSelectionToolbar,omitempty"`
	AutoInsertStyle      *bool  `json:"autoInsertStyle,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		ThemeColor:           DefaultThemeColor,
		AIProvider:           DefaultAIProvider,
		ShowFloatingToolbar:  Bool(true),
		ShowSelectionToolbar: Bool(true),
		AutoInsertStyle:      Bool(true),
	}
}

// Effective fills every missing field with its default. The receiver is not
// modified.
func (s Settings) Effective() Settings {
	defaults := DefaultSettings()
	if s.ThemeColor == "" {
		s.ThemeColor = defaults.ThemeColor
	}
	if s.AIProvider == "" {
		s.AIProvider = defaults.AIProvider
	}
	if s.ShowFloatingToolbar == nil {
		s.ShowFloatingToolbar = defaults.ShowFloatingToolbar
	}
	if s.ShowSelectionToolbar == nil {
		s.ShowSelectionToolbar = defaults.ShowSelectionToolbar
	}
	if s.AutoInsertStyle == nil {
		s.AutoInsertStyle = defaults.AutoInsertStyle
	}
	return s
}

func (s Settings) Clone() Settings {
	cloned := s
	cloned.ShowFloatingToolbar = cloneBool(s.ShowFloatingToolbar)
	cloned.ShowSelectionToolbar = cloneBool(s.ShowSelectionToolbar)
	cloned.AutoInsertStyle = cloneBool(s.AutoInsertStyle)
	return cloned
}

func Bool(v bool) *bool {
	return &v
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	copied := *v
	return &copied
}

// Favorite is a saved snippet. It serializes as the user payload with id and
// createdAt merged on top.
type Favorite struct {
	ID        int64
	CreatedAt string
	Payload   map[string]any
}

func (f Favorite) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(f.Payload)+2)
	for key, value := range f.Payload {
		merged[key] = value
	}
	merged["id"] = f.ID
	merged["createdAt"] = f.CreatedAt
	return json.Marshal(merged)
}

func (f *Favorite) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if id, ok := raw["id"].(float64); ok {
		f.ID = int64(id)
	}
	if createdAt, ok := raw["createdAt"].(string); ok {
		f.CreatedAt = createdAt
	}
	delete(raw, "id")
	delete(raw, "createdAt")
	f.Payload = raw
	return nil
}

func (f Favorite) Clone() Favorite {
	cloned := f
	cloned.Payload = CloneMap(f.Payload)
	return cloned
}

func CloneMap(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

type Store interface {
	// GetSettings returns nil when nothing has been saved yet.
	GetSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, settings Settings) error
	// AddFavorite prepends favorite and evicts the oldest entries beyond limit.
	AddFavorite(ctx context.Context, favorite Favorite, limit int) error
	// ListFavorites returns favorites newest first.
	ListFavorites(ctx context.Context) ([]Favorite, error)
	IncrementUsage(ctx context.Context, name string, delta int64) (int64, error)
	GetUsage(ctx context.Context) (map[string]int64, error)
	Ping(ctx context.Context) error
}
