// Package sqlite persists assistant state in a local SQLite file, for
// single-user installs that do not run PostgreSQL.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wxmp-assistant/relay/internal/store"
)

type Config struct {
	Path     string
	LogLevel logger.LogLevel
}

// settingsRow is a single-row table (ID=1).
type settingsRow struct {
	ID                   uint `gorm:"primaryKey"`
	ThemeColor           string
	AIProvider           string
	APIKey               string
	CustomBaseURL        string
	CustomModel          string
	UnsplashKey          string
	PixabayKey           string
	ShowFloatingToolbar  *bool
	ShowSelectionToolbar *bool
	AutoInsertStyle      *bool
	UpdatedAt            time.Time
}

func (settingsRow) TableName() string { return "assistant_settings" }

type favoriteRow struct {
	Seq          uint   `gorm:"primaryKey;autoIncrement"`
	FavoriteID   int64  `gorm:"not null"`
	CreatedAtISO string `gorm:"column:created_at_iso;not null"`
	Payload      string `gorm:"not null;default:'{}'"`
}

func (favoriteRow) TableName() string { return "favorites" }

type usageRow struct {
	Name  string `gorm:"primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

func (usageRow) TableName() string { return "usage_counters" }

type SQLiteStore struct {
	db *gorm.DB
}

func New(cfg Config) (*SQLiteStore, error) {
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Warn
	}
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", cfg.Path)

	gormLogger := logger.New(
		log.New(loggerWriter{}, "", 0),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  cfg.LogLevel,
			IgnoreRecordNotFoundError: true,
		},
	)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&settingsRow{}, &favoriteRow{}, &usageRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) GetSettings(ctx context.Context) (*store.Settings, error) {
	var row settingsRow
	if err := s.db.WithContext(ctx).First(&row, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &store.Settings{
		ThemeColor:           row.ThemeColor,
		AIProvider:           row.AIProvider,
		APIKey:               row.APIKey,
		CustomBaseURL:        row.CustomBaseURL,
		CustomModel:          row.CustomModel,
		UnsplashKey:          row.UnsplashKey,
		PixabayKey:           row.PixabayKey,
		ShowFloatingToolbar:  row.ShowFloatingToolbar,
		ShowSelectionToolbar: row.ShowSelectionToolbar,
		AutoInsertStyle:      row.AutoInsertStyle,
	}, nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, settings store.Settings) error {
	cloned := settings.Clone()
	row := settingsRow{
		ID:                   1,
		ThemeColor:           cloned.ThemeColor,
		AIProvider:           cloned.AIProvider,
		APIKey:               cloned.APIKey,
		CustomBaseURL:        cloned.CustomBaseURL,
		CustomModel:          cloned.CustomModel,
		UnsplashKey:          cloned.UnsplashKey,
		PixabayKey:           cloned.PixabayKey,
		ShowFloatingToolbar:  cloned.ShowFloatingToolbar,
		ShowSelectionToolbar: cloned.ShowSelectionToolbar,
		AutoInsertStyle:      cloned.AutoInsertStyle,
	}
	// Save writes zero values and NULLs too, so the record is replaced wholesale.
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *SQLiteStore) AddFavorite(ctx context.Context, favorite store.Favorite, limit int) error {
	if limit <= 0 {
		limit = store.DefaultFavoritesLimit
	}
	payload := []byte("{}")
	if favorite.Payload != nil {
		encoded, err := json.Marshal(favorite.Payload)
		if err != nil {
			return err
		}
		payload = encoded
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := favoriteRow{
			FavoriteID:   favorite.ID,
			CreatedAtISO: favorite.CreatedAt,
			Payload:      string(payload),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		keep := tx.Model(&favoriteRow{}).Select("seq").Order("seq DESC").Limit(limit)
		return tx.Where("seq NOT IN (?)", keep).Delete(&favoriteRow{}).Error
	})
}

func (s *SQLiteStore) ListFavorites(ctx context.Context) ([]store.Favorite, error) {
	var rows []favoriteRow
	if err := s.db.WithContext(ctx).Order("seq DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	favorites := make([]store.Favorite, 0, len(rows))
	for _, row := range rows {
		favorite := store.Favorite{ID: row.FavoriteID, CreatedAt: row.CreatedAtISO}
		if row.Payload != "" {
			if err := json.Unmarshal([]byte(row.Payload), &favorite.Payload); err != nil {
				return nil, err
			}
		}
		favorites = append(favorites, favorite)
	}
	return favorites, nil
}

func (s *SQLiteStore) IncrementUsage(ctx context.Context, name string, delta int64) (int64, error) {
	var value int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upsert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("usage_counters.value + ?", delta)}),
		})
		if err := upsert.Create(&usageRow{Name: name, Value: delta}).Error; err != nil {
			return err
		}
		var row usageRow
		if err := tx.First(&row, "name = ?", name).Error; err != nil {
			return err
		}
		value = row.Value
		return nil
	})
	return value, err
}

func (s *SQLiteStore) GetUsage(ctx context.Context) (map[string]int64, error) {
	var rows []usageRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	usage := make(map[string]int64, len(rows))
	for _, row := range rows {
		usage[row.Name] = row.Value
	}
	return usage, nil
}

// loggerWriter routes gorm's printf output into the process slog logger.
type loggerWriter struct{}

func (loggerWriter) Write(p []byte) (int, error) {
	slog.Warn("sqlite", "detail", strings.TrimSpace(string(p)))
	return len(p), nil
}
