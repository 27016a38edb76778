package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/devforum/api/internal/application/thread"
	"github.com/devforum/api/internal/domain"
	"github.com/devforum/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// ThreadHandler handles thread endpoints.
type ThreadHandler struct {
	svc thread.Service
}

func NewThreadHandler(svc thread.Service) *ThreadHandler {
	return &ThreadHandler{svc: svc}
}

func (h *ThreadHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	t, err := h.svc.Create(r.Context(), claims.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *ThreadHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	threads, next, err := h.svc.List(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedThreadsEnvelope{Data: threads, NextCursor: next})
}
