package memory

import (
	"context"
	"sync"

	"github.com/wxmp-assistant/relay/internal/store"
)

type MemoryStore struct {
	mu        sync.RWMutex
	settings  *store.Settings
	favorites []store.Favorite
	usage     map[string]int64
}

func New() *MemoryStore {
	return &MemoryStore{
		favorites: []store.Favorite{},
		usage:     map[string]int64{},
	}
}

func (m *MemoryStore) GetSettings(ctx context.Context) (*store.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return nil, nil
	}
	cloned := m.settings.Clone()
	return &cloned, nil
}

func (m *MemoryStore) SaveSettings(ctx context.Context, settings store.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cloned := settings.Clone()
	m.settings = &cloned
	return nil
}

func (m *MemoryStore) AddFavorite(ctx context.Context, favorite store.Favorite, limit int) error {
	if limit <= 0 {
		limit = store.DefaultFavoritesLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make([]store.Favorite, 0, len(m.favorites)+1)
	next = append(next, favorite.Clone())
	next = append(next, m.favorites...)
	if len(next) > limit {
		next = next[:limit]
	}
	m.favorites = next
	return nil
}

func (m *MemoryStore) ListFavorites(ctx context.Context) ([]store.Favorite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := make([]store.Favorite, 0, len(m.favorites))
	for _, favorite := range m.favorites {
		results = append(results, favorite.Clone())
	}
	return results, nil
}

func (m *MemoryStore) IncrementUsage(ctx context.Context, name string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[name] += delta
	return m.usage[name], nil
}

func (m *MemoryStore) GetUsage(ctx context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int64, len(m.usage))
	for name, value := range m.usage {
		out[name] = value
	}
	return out, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
