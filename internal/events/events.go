// Package events fans pushes out to the connections a browser tab holds open.
package events

import (
	"context"
	"strings"
	"sync"
)

const TypeContextMenuAction = "CONTEXT_MENU_ACTION"

// TabEvent is a message pushed to a tab. TabID only routes it and is not sent.
type TabEvent struct {
	TabID  string `json:"-"`
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Text   string `json:"text"`
}

const subscriberBuffer = 16

type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan TabEvent]struct{}
}

func NormalizeTabID(tabID string) string {
	return strings.TrimSpace(tabID)
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: map[string]map[chan TabEvent]struct{}{},
	}
}

// Subscribe registers a listener for tabID until ctx is done, at which point
// the channel is closed.
func (b *Broker) Subscribe(ctx context.Context, tabID string) <-chan TabEvent {
	tabID = NormalizeTabID(tabID)
	ch := make(chan TabEvent, subscriberBuffer)

	b.mu.Lock()
	if b.subscribers[tabID] == nil {
		b.subscribers[tabID] = map[chan TabEvent]struct{}{}
	}
	b.subscribers[tabID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if b.subscribers[tabID] != nil {
			delete(b.subscribers[tabID], ch)
			if len(b.subscribers[tabID]) == 0 {
				delete(b.subscribers, tabID)
			}
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish hands event to every listener of its tab without blocking and
// reports how many accepted it. A full listener drops the event.
func (b *Broker) Publish(event TabEvent) int {
	tabID := NormalizeTabID(event.TabID)
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for ch := range b.subscribers[tabID] {
		select {
		case ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}

func (b *Broker) Listeners(tabID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[NormalizeTabID(tabID)])
}
