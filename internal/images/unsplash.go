package images

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type unsplashSearchResponse struct {
	Results []struct {
		ID             string `json:"id"`
		Description    string `json:"description"`
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
			Small   string `json:"small"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		Links struct {
			Download string `json:"download"`
		} `json:"links"`
	} `json:"results"`
}

func (s *Searcher) searchUnsplash(ctx context.Context, q Query, key string) ([]Result, error) {
	params := url.Values{}
	params.Set("query", q.Query)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.unsplashBaseURL+"/search/photos?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Client-ID "+key)
	req.Header.Set("Accept-Version", "v1")

	var payload unsplashSearchResponse
	if err := s.getJSON(req, SourceUnsplash, &payload); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(payload.Results))
	for _, photo := range payload.Results {
		description := photo.Description
		if description == "" {
			description = photo.AltDescription
		}
		results = append(results, Result{
			ID:          photo.ID,
			URL:         photo.URLs.Regular,
			Thumb:       photo.URLs.Small,
			Description: description,
			Author:      photo.User.Name,
			DownloadURL: photo.Links.Download,
		})
	}
	return results, nil
}
