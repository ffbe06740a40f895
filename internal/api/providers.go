package api

import (
	"net/http"

	"github.com/wxmp-assistant/relay/internal/llm"
)

func (s *Server) listProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, llm.Providers())
}
