package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wxmp-assistant/relay/internal/menu"
)

type clickMenuRequest struct {
	SelectionText string `json:"selectionText"`
	TabID         string `json:"tabId"`
}

func (s *Server) listMenus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, menu.Entries())
}

func (s *Server) clickMenu(w http.ResponseWriter, r *http.Request) {
	var req clickMenuRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
	}
	result, err := s.menus.Click(r.Context(), menu.Click{
		MenuItemID:    chi.URLParam(r, "id"),
		SelectionText: req.SelectionText,
		TabID:         req.TabID,
	})
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, menu.ErrUnknownEntry) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, result)
}
