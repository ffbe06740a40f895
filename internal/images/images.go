// Package images searches stock photo providers and normalizes their results.
package images

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wxmp-assistant/relay/internal/upstream"
)

const (
	SourceUnsplash = "unsplash"
	SourcePixabay  = "pixabay"

	DefaultPage    = 1
	DefaultPerPage = 20

	DefaultUnsplashBaseURL = "https://api.unsplash.com"
	DefaultPixabayBaseURL  = "https://pixabay.com/api"
)

const (
	MessageMissingUnsplashKey = "请先在设置中配置 Unsplash Access Key"
	MessageMissingPixabayKey  = "请先在设置中配置 Pixabay API Key"
)

type Result struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Thumb       string `json:"thumb"`
	Description string `json:"description"`
	Author      string `json:"author"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

type Query struct {
	Query   string `json:"query"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}

// Keys carries the per-provider credentials from the user's settings.
type Keys struct {
	Unsplash string
	Pixabay  string
}

type Config struct {
	UnsplashBaseURL string
	PixabayBaseURL  string
	Client          *http.Client
}

type Searcher struct {
	unsplashBaseURL string
	pixabayBaseURL  string
	client          *http.Client
}

func NewSearcher(cfg Config) *Searcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Searcher{
		unsplashBaseURL: strings.TrimRight(defaultIfEmpty(cfg.UnsplashBaseURL, DefaultUnsplashBaseURL), "/"),
		pixabayBaseURL:  strings.TrimRight(defaultIfEmpty(cfg.PixabayBaseURL, DefaultPixabayBaseURL), "/"),
		client:          client,
	}
}

// Search dispatches on q.Source. An unrecognized source yields an empty
// result list rather than an error.
func (s *Searcher) Search(ctx context.Context, q Query, keys Keys) ([]Result, error) {
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	switch strings.ToLower(strings.TrimSpace(q.Source)) {
	case SourceUnsplash:
		if strings.TrimSpace(keys.Unsplash) == "" {
			return nil, upstream.Configuration(MessageMissingUnsplashKey)
		}
		return s.searchUnsplash(ctx, q, keys.Unsplash)
	case SourcePixabay:
		if strings.TrimSpace(keys.Pixabay) == "" {
			return nil, upstream.Configuration(MessageMissingPixabayKey)
		}
		return s.searchPixabay(ctx, q, keys.Pixabay)
	default:
		return []Result{}, nil
	}
}

func (s *Searcher) getJSON(req *http.Request, provider string, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstream.FromResponse(provider, resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func defaultIfEmpty(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
