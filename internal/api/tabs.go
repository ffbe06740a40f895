package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/wxmp-assistant/relay/internal/dispatch"
	"github.com/wxmp-assistant/relay/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// tabConn serialises writes from the reply loop and the menu push loop.
type tabConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *tabConn) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

// tabSocket carries envelopes for one tab. Frames are dispatched in arrival
// order, one reply each, and menu actions for the tab are pushed in between.
func (s *Server) tabSocket(w http.ResponseWriter, r *http.Request) {
	tabID := events.NormalizeTabID(chi.URLParam(r, "tabID"))
	if tabID == "" {
		http.Error(w, "tab id required", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	tc := &tabConn{conn: conn}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if s.broker != nil {
		pushes := s.broker.Subscribe(ctx, tabID)
		go func() {
			for event := range pushes {
				if err := tc.writeJSON(event); err != nil {
					cancel()
					return
				}
			}
		}()
	}

	logger := s.logger.With("tab_id", tabID)
	logger.Debug("tab connected")
	defer logger.Debug("tab disconnected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg dispatch.Message
		var reply dispatch.Reply
		if err := json.Unmarshal(data, &msg); err != nil {
			reply = dispatch.Reply{Success: false, Error: "invalid message"}
		} else {
			reply = s.dispatcher.Dispatch(ctx, msg)
		}
		if err := tc.writeJSON(reply); err != nil {
			return
		}
	}
}
