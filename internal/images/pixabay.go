package images

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type pixabaySearchResponse struct {
	Hits []struct {
		ID           int64  `json:"id"`
		WebformatURL string `json:"webformatURL"`
		PreviewURL   string `json:"previewURL"`
		Tags         string `json:"tags"`
		User         string `json:"user"`
	} `json:"hits"`
}

func (s *Searcher) searchPixabay(ctx context.Context, q Query, key string) ([]Result, error) {
	params := url.Values{}
	params.Set("key", key)
	params.Set("q", q.Query)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("image_type", "photo")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pixabayBaseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var payload pixabaySearchResponse
	if err := s.getJSON(req, SourcePixabay, &payload); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(payload.Hits))
	for _, hit := range payload.Hits {
		results = append(results, Result{
			ID:          strconv.FormatInt(hit.ID, 10),
			URL:         hit.WebformatURL,
			Thumb:       hit.PreviewURL,
			Description: hit.Tags,
			Author:      hit.User,
		})
	}
	return results, nil
}
