package api

import (
	"encoding/json"
	"net/http"

	"github.com/wxmp-assistant/relay/internal/dispatch"
)

// maxMessageBytes bounds one envelope. Page snapshots for EXTRACT_PAGE_INFO
// are the largest payloads.
const maxMessageBytes = 8 << 20

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var msg dispatch.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&msg); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	writeJSON(w, s.dispatcher.Dispatch(r.Context(), msg))
}
