package handler

import (
	"encoding/json"
	"net/http"

	"github.com/devforum/api/internal/application/comment"
	"github.com/devforum/api/internal/domain"
	"github.com/devforum/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// CommentHandler handles comment endpoints nested under threads.
type CommentHandler struct {
	svc comment.Service
}

func NewCommentHandler(svc comment.Service) *CommentHandler {
	return &CommentHandler{svc: svc}
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	c, err := h.svc.Create(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CommentHandler) ListByThread(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.ListByThread(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}
