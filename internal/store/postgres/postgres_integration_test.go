//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testcontainers "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	storepkg "github.com/wxmp-assistant/relay/internal/store"
)

var testConn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tcpostgres.Run(
		ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("wxmp"),
		tcpostgres.WithUsername("wxmp"),
		tcpostgres.WithPassword("wxmp"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "start postgres container:", err)
		os.Exit(1)
	}
	conn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintln(os.Stderr, "connection string:", err)
		os.Exit(1)
	}
	if err := applyMigrations(ctx, conn); err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintln(os.Stderr, "apply migrations:", err)
		os.Exit(1)
	}
	testConn = conn
	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func applyMigrations(ctx context.Context, conn string) error {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return fmt.Errorf("unable to locate test file")
	}
	root := filepath.Join(filepath.Dir(file), "..", "..", "..")
	schema, err := os.ReadFile(filepath.Join(root, "migrations", "001_init.sql"))
	if err != nil {
		return err
	}
	db, err := sql.Open("pgx", conn)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, string(schema))
	return err
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	pgStore, err := New(testConn)
	require.NoError(t, err)
	defer pgStore.Close()

	settings, err := pgStore.GetSettings(ctx)
	require.NoError(t, err)
	require.Nil(t, settings)

	saved := storepkg.Settings{
		AIProvider:           "zhipu",
		APIKey:               "sk-zhipu",
		CustomModel:          "glm-4-plus",
		ShowSelectionToolbar: storepkg.Bool(false),
	}
	require.NoError(t, pgStore.SaveSettings(ctx, saved))
	got, err := pgStore.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, saved, *got)

	for i := 1; i <= 5; i++ {
		require.NoError(t, pgStore.AddFavorite(ctx, storepkg.Favorite{
			ID:        int64(i),
			CreatedAt: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC).Format(storepkg.TimestampLayout),
			Payload:   map[string]any{"n": float64(i)},
		}, 3))
	}
	favorites, err := pgStore.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 3)
	require.Equal(t, int64(5), favorites[0].ID)
	require.Equal(t, int64(3), favorites[2].ID)

	_, err = pgStore.IncrementUsage(ctx, storepkg.UsageAIRequests, 1)
	require.NoError(t, err)
	value, err := pgStore.IncrementUsage(ctx, storepkg.UsageAIRequests, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), value)
}
