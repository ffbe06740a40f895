// Package menu defines the editor's context menu and routes clicks to the tab
// that raised them.
package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wxmp-assistant/relay/internal/events"
	"github.com/wxmp-assistant/relay/internal/metrics"
)

const IDPrefix = "wxmp-"

const (
	ContextSelection = "selection"
	ContextPage      = "page"
)

type Entry struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Contexts []string `json:"contexts"`
}

var entries = []Entry{
	{ID: IDPrefix + "polish", Title: "润色选中文字", Contexts: []string{ContextSelection}},
	{ID: IDPrefix + "expand", Title: "扩写选中文字", Contexts: []string{ContextSelection}},
	{ID: IDPrefix + "summarize", Title: "总结选中文字", Contexts: []string{ContextSelection}},
	{ID: IDPrefix + "page-info", Title: "提取页面信息", Contexts: []string{ContextPage}},
}

// Entries returns the menu in display order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	for i, entry := range entries {
		entry.Contexts = append([]string(nil), entry.Contexts...)
		out[i] = entry
	}
	return out
}

var ErrUnknownEntry = errors.New("unknown menu item")

type Click struct {
	MenuItemID    string `json:"menuItemId"`
	SelectionText string `json:"selectionText"`
	TabID         string `json:"tabId"`
}

type Result struct {
	Action    string `json:"action"`
	Delivered bool   `json:"delivered"`
}

type Publisher interface {
	Publish(event events.TabEvent) int
}

type Router struct {
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewRouter(publisher Publisher, m *metrics.Metrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{publisher: publisher, metrics: m, logger: logger}
}

// Click forwards the action to the tab. The page decides what to do with it.
func (r *Router) Click(ctx context.Context, click Click) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	action, ok := actionFor(click.MenuItemID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownEntry, click.MenuItemID)
	}
	if strings.TrimSpace(click.TabID) == "" {
		return Result{}, errors.New("tab id is required")
	}
	delivered := r.publisher.Publish(events.TabEvent{
		TabID:  click.TabID,
		Type:   events.TypeContextMenuAction,
		Action: action,
		Text:   click.SelectionText,
	}) > 0
	r.metrics.ObserveMenuClick(action, delivered)
	if !delivered {
		r.logger.Info("menu action dropped, tab has no listener", "action", action, "tab_id", click.TabID)
	}
	return Result{Action: action, Delivered: delivered}, nil
}

func actionFor(menuItemID string) (string, bool) {
	for _, entry := range entries {
		if entry.ID == menuItemID {
			return strings.TrimPrefix(entry.ID, IDPrefix), true
		}
	}
	return "", false
}
