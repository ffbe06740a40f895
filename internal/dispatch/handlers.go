package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wxmp-assistant/relay/internal/images"
	"github.com/wxmp-assistant/relay/internal/llm"
	"github.com/wxmp-assistant/relay/internal/pageinfo"
	"github.com/wxmp-assistant/relay/internal/store"
)

type aiRequest struct {
	Action  string         `json:"action"`
	Text    string         `json:"text"`
	Options map[string]any `json:"options"`
}

type pageInfoRequest struct {
	HTML string `json:"html"`
	URL  string `json:"url"`
}

func decode(data json.RawMessage, out any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid message data: %w", err)
	}
	return nil
}

// settings returns the saved record with every field it leaves unset filled
// from the defaults, or the defaults when nothing has been saved.
func (d *Dispatcher) settings(ctx context.Context) (store.Settings, error) {
	saved, err := d.store.GetSettings(ctx)
	if err != nil {
		return store.Settings{}, err
	}
	if saved == nil {
		return store.DefaultSettings(), nil
	}
	return saved.Clone().Effective(), nil
}

func (d *Dispatcher) countUsage(ctx context.Context, name string) {
	if _, err := d.store.IncrementUsage(ctx, name, 1); err != nil {
		d.logger.Warn("usage counter update failed", "counter", name, "error", err)
	}
}

func (d *Dispatcher) handleAIRequest(ctx context.Context, data json.RawMessage) (any, error) {
	var req aiRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	settings, err := d.settings(ctx)
	if err != nil {
		return nil, err
	}
	endpoint, err := llm.Resolve(llm.Selection{
		Provider:      settings.AIProvider,
		APIKey:        settings.APIKey,
		CustomBaseURL: settings.CustomBaseURL,
		CustomModel:   settings.CustomModel,
	})
	if err != nil {
		return nil, err
	}

	prompt, _ := d.prompts.Render(req.Action, req.Text, req.Options)
	provider := d.newProvider(endpoint)
	start := time.Now()
	content, err := provider.Generate(ctx, []llm.Message{
		{Role: "system", Content: d.prompts.System()},
		{Role: "user", Content: prompt},
	})
	d.metrics.ObserveProvider(endpoint.Provider, "chat", time.Since(start))
	if err != nil {
		return nil, err
	}
	d.countUsage(ctx, store.UsageAIRequests)
	return content, nil
}

func (d *Dispatcher) handleSearchImages(ctx context.Context, data json.RawMessage) (any, error) {
	var query images.Query
	if err := decode(data, &query); err != nil {
		return nil, err
	}
	settings, err := d.settings(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	results, err := d.images.Search(ctx, query, images.Keys{
		Unsplash: settings.UnsplashKey,
		Pixabay:  settings.PixabayKey,
	})
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []images.Result{}
	}
	if source := strings.ToLower(strings.TrimSpace(query.Source)); source == images.SourceUnsplash || source == images.SourcePixabay {
		d.metrics.ObserveProvider(source, "images", time.Since(start))
		d.countUsage(ctx, store.UsageImageSearches)
	}
	return results, nil
}

func (d *Dispatcher) handleGetSettings(ctx context.Context, _ json.RawMessage) (any, error) {
	settings, err := d.settings(ctx)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (d *Dispatcher) handleSaveSettings(ctx context.Context, data json.RawMessage) (any, error) {
	var settings store.Settings
	if err := decode(data, &settings); err != nil {
		return nil, err
	}
	if err := d.store.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return nil, nil
}

var errFavoriteNotObject = errors.New("favorite must be a JSON object")

func (d *Dispatcher) handleSaveFavorite(ctx context.Context, data json.RawMessage) (any, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil || payload == nil {
		return nil, errFavoriteNotObject
	}
	delete(payload, "id")
	delete(payload, "createdAt")

	now := d.now().UTC()
	favorite := store.Favorite{
		ID:        d.nextFavoriteID(now),
		CreatedAt: now.Format(store.TimestampLayout),
		Payload:   payload,
	}
	if err := d.store.AddFavorite(ctx, favorite, d.favoritesLimit); err != nil {
		return nil, err
	}
	d.countUsage(ctx, store.UsageFavoritesSaved)
	return favorite, nil
}

// nextFavoriteID returns the creation time in unix milliseconds, bumped past
// the previous id when two favorites land in the same millisecond.
func (d *Dispatcher) nextFavoriteID(now time.Time) int64 {
	d.favoriteMu.Lock()
	defer d.favoriteMu.Unlock()
	id := now.UnixMilli()
	if id <= d.lastFavoriteID {
		id = d.lastFavoriteID + 1
	}
	d.lastFavoriteID = id
	return id
}

func (d *Dispatcher) handleGetFavorites(ctx context.Context, _ json.RawMessage) (any, error) {
	favorites, err := d.store.ListFavorites(ctx)
	if err != nil {
		return nil, err
	}
	if favorites == nil {
		favorites = []store.Favorite{}
	}
	return favorites, nil
}

func (d *Dispatcher) handleGetUsage(ctx context.Context, _ json.RawMessage) (any, error) {
	usage, err := d.store.GetUsage(ctx)
	if err != nil {
		return nil, err
	}
	if usage == nil {
		usage = map[string]int64{}
	}
	for _, name := range []string{
		store.UsageAIRequests,
		store.UsageImageSearches,
		store.UsageFavoritesSaved,
		store.UsagePageInfoExtractions,
	} {
		if _, ok := usage[name]; !ok {
			usage[name] = 0
		}
	}
	return usage, nil
}

func (d *Dispatcher) handleExtractPageInfo(ctx context.Context, data json.RawMessage) (any, error) {
	var req pageInfoRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if req.HTML == "" {
		return nil, errors.New("html is required")
	}
	info, err := pageinfo.Extract(req.HTML, req.URL)
	if err != nil {
		return nil, err
	}
	d.countUsage(ctx, store.UsagePageInfoExtractions)
	return info, nil
}
