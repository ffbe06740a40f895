package menu

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wxmp-assistant/relay/internal/events"
)

func newTestRouter(broker *events.Broker) *Router {
	return NewRouter(broker, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEntries(t *testing.T) {
	got := Entries()
	require.Len(t, got, 4)
	ids := make([]string, 0, len(got))
	for _, entry := range got {
		require.Contains(t, entry.ID, IDPrefix)
		ids = append(ids, entry.ID)
	}
	require.Equal(t, []string{"wxmp-polish", "wxmp-expand", "wxmp-summarize", "wxmp-page-info"}, ids)
	require.Equal(t, []string{ContextPage}, got[3].Contexts)

	got[0].Contexts[0] = "mutated"
	require.Equal(t, ContextSelection, Entries()[0].Contexts[0])
}

func TestClick_DeliversToTab(t *testing.T) {
	broker := events.NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := broker.Subscribe(ctx, "42")

	result, err := newTestRouter(broker).Click(context.Background(), Click{
		MenuItemID:    "wxmp-polish",
		SelectionText: "需要润色的句子",
		TabID:         "42",
	})
	require.NoError(t, err)
	require.Equal(t, Result{Action: "polish", Delivered: true}, result)

	event := <-ch
	require.Equal(t, events.TabEvent{
		TabID:  "42",
		Type:   "CONTEXT_MENU_ACTION",
		Action: "polish",
		Text:   "需要润色的句子",
	}, event)
}

func TestClick_PageInfoAction(t *testing.T) {
	result, err := newTestRouter(events.NewBroker()).Click(context.Background(), Click{MenuItemID: "wxmp-page-info", TabID: "7"})
	require.NoError(t, err)
	require.Equal(t, "page-info", result.Action)
	require.False(t, result.Delivered)
}

func TestClick_UnknownEntry(t *testing.T) {
	_, err := newTestRouter(events.NewBroker()).Click(context.Background(), Click{MenuItemID: "other-extension-item", TabID: "1"})
	require.True(t, errors.Is(err, ErrUnknownEntry))
}

func TestClick_RequiresTab(t *testing.T) {
	_, err := newTestRouter(events.NewBroker()).Click(context.Background(), Click{MenuItemID: "wxmp-expand"})
	require.EqualError(t, err, "tab id is required")
}
