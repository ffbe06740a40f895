package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/wxmp-assistant/relay/internal/store"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	cleanup := func() {
		_ = db.Close()
	}
	return &PostgresStore{db: db}, mock, cleanup
}

var settingsColumns = []string{
	"theme_color", "ai_provider", "api_key", "custom_base_url", "custom_model", "unsplash_key", "pixabay_key",
	"show_floating_toolbar", "show_selection_toolbar", "auto_insert_style",
}

func TestVerifySchema_QueryError(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT to_regclass").WillReturnError(errors.New("query error"))
	if err := verifySchema(ctx, pgStore.db); err == nil {
		t.Fatalf("expected schema verification error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVerifySchema_MissingTable(t *testing.T) {
	ctx := context.Background()
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT to_regclass").WithArgs("public.assistant_settings").
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow("assistant_settings"))
	mock.ExpectQuery("SELECT to_regclass").WithArgs("public.favorites").
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow(nil))

	err := verifySchema(ctx, pgStore.db)
	require.Error(t, err)
	require.Contains(t, err.Error(), "favorites table not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_OpenError(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(driverName, dataSourceName string) (*sql.DB, error) {
		return nil, errors.New("open failed")
	}
	_, err := New("postgres://example")
	require.EqualError(t, err, "open failed")
}

func TestGetSettings_NoRows(t *testing.T) {
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT theme_color, ai_provider").WillReturnRows(sqlmock.NewRows(settingsColumns))
	settings, err := pgStore.GetSettings(context.Background())
	require.NoError(t, err)
	require.Nil(t, settings)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSettings_TriStateToggles(t *testing.T) {
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	rows := sqlmock.NewRows(settingsColumns).
		AddRow("#000", "moonshot", "sk", "", "", "u", "p", false, nil, true)
	mock.ExpectQuery("SELECT theme_color, ai_provider").WillReturnRows(rows)

	settings, err := pgStore.GetSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, store.Settings{
		ThemeColor:          "#000",
		AIProvider:          "moonshot",
		APIKey:              "sk",
		UnsplashKey:         "u",
		PixabayKey:          "p",
		ShowFloatingToolbar: store.Bool(false),
		AutoInsertStyle:     store.Bool(true),
	}, *settings)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSettings_Upsert(t *testing.T) {
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO assistant_settings").
		WithArgs("", "openai", "sk", "https://x", "", "", "", true, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := pgStore.SaveSettings(context.Background(), store.Settings{
		AIProvider:          "openai",
		APIKey:              "sk",
		CustomBaseURL:       "https://x",
		ShowFloatingToolbar: store.Bool(true),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddFavorite_InsertsAndEvicts(t *testing.T) {
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO favorites").
		WithArgs(int64(1700000000000), sqlmock.AnyArg(), []byte(`{"content":"hi"}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM favorites").WithArgs(100).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := pgStore.AddFavorite(context.Background(), store.Favorite{
		ID:        1700000000000,
		CreatedAt: "2023-11-14T22:13:20Z",
		Payload:   map[string]any{"content": "hi"},
	}, 0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddFavorite_RollsBackOnEvictError(t *testing.T) {
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO favorites").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM favorites").WillReturnError(errors.New("evict failed"))
	mock.ExpectRollback()

	err := pgStore.AddFavorite(context.Background(), store.Favorite{ID: 1, CreatedAt: "2023-11-14T22:13:20Z"}, 10)
	require.EqualError(t, err, "evict failed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddFavorite_InvalidTimestamp(t *testing.T) {
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	err := pgStore.AddFavorite(context.Background(), store.Favorite{ID: 1, CreatedAt: "yesterday"}, 10)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFavorites(t *testing.T) {
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"favorite_id", "created_at", "payload"}).
		AddRow(int64(2), created.Add(time.Minute), []byte(`{"content":"second"}`)).
		AddRow(int64(1), created, []byte(`{"content":"first"}`))
	mock.ExpectQuery("SELECT favorite_id, created_at, payload").WillReturnRows(rows)

	favorites, err := pgStore.ListFavorites(context.Background())
	require.NoError(t, err)
	require.Len(t, favorites, 2)
	require.Equal(t, int64(2), favorites[0].ID)
	require.Equal(t, "2024-05-01T08:01:00.000Z", favorites[0].CreatedAt)
	require.Equal(t, "first", favorites[1].Payload["content"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListFavorites_RowsErr(t *testing.T) {
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"favorite_id", "created_at", "payload"}).
		AddRow(int64(2), time.Now(), []byte(`{}`)).
		AddRow(int64(1), time.Now(), []byte(`{}`))
	rows.RowError(1, errors.New("row error"))
	mock.ExpectQuery("SELECT favorite_id, created_at, payload").WillReturnRows(rows)

	if _, err := pgStore.ListFavorites(context.Background()); err == nil {
		t.Fatalf("expected rows error")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementUsage(t *testing.T) {
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO usage_counters").
		WithArgs(store.UsageAIRequests, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(int64(7)))

	value, err := pgStore.IncrementUsage(context.Background(), store.UsageAIRequests, 1)
	require.NoError(t, err)
	require.Equal(t, int64(7), value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUsage(t *testing.T) {
	pgStore, mock, cleanup := newMockStore(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"name", "value"}).
		AddRow(store.UsageAIRequests, int64(3)).
		AddRow(store.UsageImageSearches, int64(4))
	mock.ExpectQuery("SELECT name, value FROM usage_counters").WillReturnRows(rows)

	usage, err := pgStore.GetUsage(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int64{store.UsageAIRequests: 3, store.UsageImageSearches: 4}, usage)
	require.NoError(t, mock.ExpectationsWereMet())
}
