package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wxmp-assistant/relay/internal/store"
)

func TestGetSettings_Empty(t *testing.T) {
	mem := New()
	settings, err := mem.GetSettings(context.Background())
	require.NoError(t, err)
	require.Nil(t, settings)
}

func TestSaveSettings_ReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	mem := New()

	first := store.Settings{AIProvider: "deepseek", APIKey: "sk-1", CustomModel: "m", ShowFloatingToolbar: store.Bool(false)}
	require.NoError(t, mem.SaveSettings(ctx, first))

	second := store.Settings{AIProvider: "openai"}
	require.NoError(t, mem.SaveSettings(ctx, second))

	got, err := mem.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, second, *got)
	require.Empty(t, got.APIKey)
	require.Nil(t, got.ShowFloatingToolbar)
}

func TestGetSettings_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	mem := New()
	require.NoError(t, mem.SaveSettings(ctx, store.Settings{AutoInsertStyle: store.Bool(true)}))

	got, err := mem.GetSettings(ctx)
	require.NoError(t, err)
	*got.AutoInsertStyle = false

	again, err := mem.GetSettings(ctx)
	require.NoError(t, err)
	require.True(t, *again.AutoInsertStyle)
}

func TestAddFavorite_NewestFirstWithEviction(t *testing.T) {
	ctx := context.Background()
	mem := New()
	for i := 1; i <= store.DefaultFavoritesLimit+1; i++ {
		fav := store.Favorite{ID: int64(i), CreatedAt: fmt.Sprintf("t-%d", i), Payload: map[string]any{"n": i}}
		require.NoError(t, mem.AddFavorite(ctx, fav, store.DefaultFavoritesLimit))
	}

	favorites, err := mem.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, store.DefaultFavoritesLimit)
	require.Equal(t, int64(101), favorites[0].ID)
	require.Equal(t, int64(2), favorites[len(favorites)-1].ID)
}

func TestAddFavorite_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	mem := New()
	for i := 0; i < store.DefaultFavoritesLimit+5; i++ {
		require.NoError(t, mem.AddFavorite(ctx, store.Favorite{ID: int64(i)}, 0))
	}
	favorites, err := mem.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, store.DefaultFavoritesLimit)
}

func TestUsageCounters(t *testing.T) {
	ctx := context.Background()
	mem := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mem.IncrementUsage(ctx, store.UsageAIRequests, 1)
		}()
	}
	wg.Wait()

	value, err := mem.IncrementUsage(ctx, store.UsageImageSearches, 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), value)

	usage, err := mem.GetUsage(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{store.UsageAIRequests: 50, store.UsageImageSearches: 2}, usage)
}

func TestPing(t *testing.T) {
	mem := New()
	require.NoError(t, mem.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, mem.Ping(ctx))
}
