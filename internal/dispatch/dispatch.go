// Package dispatch turns message envelopes from the UI surfaces into
// operations and always answers with exactly one reply envelope.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wxmp-assistant/relay/internal/images"
	"github.com/wxmp-assistant/relay/internal/llm"
	"github.com/wxmp-assistant/relay/internal/metrics"
	"github.com/wxmp-assistant/relay/internal/prompts"
	"github.com/wxmp-assistant/relay/internal/store"
	"github.com/wxmp-assistant/relay/internal/upstream"
)

type MessageType string

const (
	TypeAIRequest       MessageType = "AI_REQUEST"
	TypeSearchImages    MessageType = "SEARCH_IMAGES"
	TypeGetSettings     MessageType = "GET_SETTINGS"
	TypeSaveSettings    MessageType = "SAVE_SETTINGS"
	TypeSaveFavorite    MessageType = "SAVE_FAVORITE"
	TypeGetFavorites    MessageType = "GET_FAVORITES"
	TypeGetUsage        MessageType = "GET_USAGE"
	TypeExtractPageInfo MessageType = "EXTRACT_PAGE_INFO"
)

var ErrUnknownMessageType = errors.New("Unknown message type")

const internalErrorMessage = "internal error"

type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type Reply struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler serves one message type. The returned value becomes the reply data.
type Handler func(ctx context.Context, data json.RawMessage) (any, error)

type ImageSearcher interface {
	Search(ctx context.Context, q images.Query, keys images.Keys) ([]images.Result, error)
}

type ProviderFactory func(endpoint llm.Endpoint) llm.Provider

type Options struct {
	Store          store.Store
	Images         ImageSearcher
	NewProvider    ProviderFactory
	Prompts        *prompts.Bank
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	FavoritesLimit int
	// HTTPClient is used by the default provider factory.
	HTTPClient *http.Client
	Now        func() time.Time
}

type Dispatcher struct {
	handlers       map[MessageType]Handler
	store          store.Store
	images         ImageSearcher
	newProvider    ProviderFactory
	prompts        *prompts.Bank
	metrics        *metrics.Metrics
	logger         *slog.Logger
	favoritesLimit int
	now            func() time.Time

	favoriteMu     sync.Mutex
	lastFavoriteID int64
}

func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		handlers:       map[MessageType]Handler{},
		store:          opts.Store,
		images:         opts.Images,
		newProvider:    opts.NewProvider,
		prompts:        opts.Prompts,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		favoritesLimit: opts.FavoritesLimit,
		now:            opts.Now,
	}
	if d.newProvider == nil {
		client := opts.HTTPClient
		d.newProvider = func(endpoint llm.Endpoint) llm.Provider {
			return llm.NewProvider(endpoint, client)
		}
	}
	if d.images == nil {
		d.images = images.NewSearcher(images.Config{Client: opts.HTTPClient})
	}
	if d.prompts == nil {
		d.prompts = prompts.Default()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.favoritesLimit <= 0 {
		d.favoritesLimit = store.DefaultFavoritesLimit
	}
	if d.now == nil {
		d.now = time.Now
	}

	d.Register(TypeAIRequest, d.handleAIRequest)
	d.Register(TypeSearchImages, d.handleSearchImages)
	d.Register(TypeGetSettings, d.handleGetSettings)
	d.Register(TypeSaveSettings, d.handleSaveSettings)
	d.Register(TypeSaveFavorite, d.handleSaveFavorite)
	d.Register(TypeGetFavorites, d.handleGetFavorites)
	d.Register(TypeGetUsage, d.handleGetUsage)
	d.Register(TypeExtractPageInfo, d.handleExtractPageInfo)
	return d
}

// Register adds or replaces the handler for a message type. It is not safe to
// call concurrently with Dispatch.
func (d *Dispatcher) Register(messageType MessageType, handler Handler) {
	d.handlers[messageType] = handler
}

// Dispatch runs the handler for msg.Type. It never panics and returns exactly
// one reply.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (reply Reply) {
	requestID := uuid.NewString()
	start := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("dispatch panic",
				"type", string(msg.Type),
				"request_id", requestID,
				"panic", fmt.Sprint(recovered),
			)
			d.metrics.ObserveMessage(string(msg.Type), "panic")
			reply = Reply{Success: false, Error: internalErrorMessage}
		}
	}()

	handler, ok := d.handlers[msg.Type]
	if !ok {
		d.logger.Warn("unknown message type", "type", string(msg.Type), "request_id", requestID)
		d.metrics.ObserveMessage("unknown", outcomeOf(ErrUnknownMessageType))
		return Reply{Success: false, Error: ErrUnknownMessageType.Error()}
	}

	data, err := handler(ctx, msg.Data)
	d.metrics.ObserveMessage(string(msg.Type), outcomeOf(err))
	if err != nil {
		d.logger.Warn("dispatch failed",
			"type", string(msg.Type),
			"request_id", requestID,
			"elapsed", time.Since(start),
			"error", err,
		)
		return Reply{Success: false, Error: err.Error()}
	}
	d.logger.Debug("dispatched", "type", string(msg.Type), "request_id", requestID, "elapsed", time.Since(start))
	return Reply{Success: true, Data: data}
}

func outcomeOf(err error) string {
	var cfgErr *upstream.ConfigurationError
	var providerErr *upstream.ProviderError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnknownMessageType):
		return "unknown_type"
	case errors.As(err, &cfgErr):
		return "configuration_error"
	case errors.As(err, &providerErr):
		return "provider_error"
	default:
		return "error"
	}
}
