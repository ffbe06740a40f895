package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wxmp-assistant/relay/internal/store"
)

type PostgresStore struct {
	db *sql.DB
}

var openDB = sql.Open

func New(conn string) (*PostgresStore, error) {
	db, err := openDB("pgx", conn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := verifySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func verifySchema(ctx context.Context, db *sql.DB) error {
	required := []string{
		"assistant_settings",
		"favorites",
		"usage_counters",
	}
	for _, table := range required {
		var regclass sql.NullString
		if err := db.QueryRowContext(ctx, "SELECT to_regclass($1)", fmt.Sprintf("public.%s", table)).Scan(&regclass); err != nil {
			return err
		}
		if !regclass.Valid {
			return fmt.Errorf("database schema missing: %s table not found (run migrations/001_init.sql)", table)
		}
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresStore) GetSettings(ctx context.Context) (*store.Settings, error) {
	const query = `
		SELECT theme_color, ai_provider, api_key, custom_base_url, custom_model, unsplash_key, pixabay_key,
			show_floating_toolbar, show_selection_toolbar, auto_insert_style
		FROM assistant_settings
		WHERE id = 1
	`
	var floating, selection, autoInsert sql.NullBool
	settings := store.Settings{}
	if err := p.db.QueryRowContext(ctx, query).Scan(
		&settings.ThemeColor,
		&settings.AIProvider,
		&settings.APIKey,
		&settings.CustomBaseURL,
		&settings.CustomModel,
		&settings.UnsplashKey,
		&settings.PixabayKey,
		&floating,
		&selection,
		&autoInsert,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	settings.ShowFloatingToolbar = fromNullBool(floating)
	settings.ShowSelectionToolbar = fromNullBool(selection)
	settings.AutoInsertStyle = fromNullBool(autoInsert)
	return &settings, nil
}

func (p *PostgresStore) SaveSettings(ctx context.Context, settings store.Settings) error {
	const query = `
		INSERT INTO assistant_settings
			(id, theme_color, ai_provider, api_key, custom_base_url, custom_model, unsplash_key, pixabay_key,
			 show_floating_toolbar, show_selection_toolbar, auto_insert_style, updated_at)
		VALUES
			(1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id)
		DO UPDATE SET
			theme_color = EXCLUDED.theme_color,
			ai_provider = EXCLUDED.ai_provider,
			api_key = EXCLUDED.api_key,
			custom_base_url = EXCLUDED.custom_base_url,
			custom_model = EXCLUDED.custom_model,
			unsplash_key = EXCLUDED.unsplash_key,
			pixabay_key = EXCLUDED.pixabay_key,
			show_floating_toolbar = EXCLUDED.show_floating_toolbar,
			show_selection_toolbar = EXCLUDED.show_selection_toolbar,
			auto_insert_style = EXCLUDED.auto_insert_style,
			updated_at = EXCLUDED.updated_at
	`
	_, err := p.db.ExecContext(
		ctx,
		query,
		settings.ThemeColor,
		settings.AIProvider,
		settings.APIKey,
		settings.CustomBaseURL,
		settings.CustomModel,
		settings.UnsplashKey,
		settings.PixabayKey,
		nullBool(settings.ShowFloatingToolbar),
		nullBool(settings.ShowSelectionToolbar),
		nullBool(settings.AutoInsertStyle),
		time.Now().UTC(),
	)
	return err
}

func (p *PostgresStore) AddFavorite(ctx context.Context, favorite store.Favorite, limit int) error {
	if limit <= 0 {
		limit = store.DefaultFavoritesLimit
	}
	payload, err := json.Marshal(favorite.Payload)
	if err != nil {
		return err
	}
	if favorite.Payload == nil {
		payload = []byte("{}")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, favorite.CreatedAt)
	if err != nil {
		return fmt.Errorf("invalid favorite timestamp: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(
		ctx,
		"INSERT INTO favorites (favorite_id, created_at, payload) VALUES ($1, $2, $3)",
		favorite.ID,
		createdAt,
		payload,
	); err != nil {
		return err
	}
	const evict = `
		DELETE FROM favorites
		WHERE seq NOT IN (
			SELECT seq FROM favorites ORDER BY seq DESC LIMIT $1
		)
	`
	if _, err := tx.ExecContext(ctx, evict, limit); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) ListFavorites(ctx context.Context) ([]store.Favorite, error) {
	const query = `
		SELECT favorite_id, created_at, payload
		FROM favorites
		ORDER BY seq DESC
	`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := []store.Favorite{}
	for rows.Next() {
		var favorite store.Favorite
		var createdAt time.Time
		var payload []byte
		if err := rows.Scan(&favorite.ID, &createdAt, &payload); err != nil {
			return nil, err
		}
		favorite.CreatedAt = createdAt.UTC().Format(store.TimestampLayout)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &favorite.Payload); err != nil {
				return nil, err
			}
		}
		favorites = append(favorites, favorite)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return favorites, nil
}

func (p *PostgresStore) IncrementUsage(ctx context.Context, name string, delta int64) (int64, error) {
	const query = `
		INSERT INTO usage_counters (name, value)
		VALUES ($1, $2)
		ON CONFLICT (name)
		DO UPDATE SET value = usage_counters.value + EXCLUDED.value
		RETURNING value
	`
	var value int64
	if err := p.db.QueryRowContext(ctx, query, name, delta).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}

func (p *PostgresStore) GetUsage(ctx context.Context) (map[string]int64, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT name, value FROM usage_counters")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := map[string]int64{}
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		usage[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return usage, nil
}

func nullBool(value *bool) sql.NullBool {
	if value == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *value, Valid: true}
}

func fromNullBool(value sql.NullBool) *bool {
	if !value.Valid {
		return nil
	}
	return store.Bool(value.Bool)
}
