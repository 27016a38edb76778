package handler

import (
	"encoding/json"
	"net/http"

	"github.com/devforum/api/internal/application/vote"
	"github.com/devforum/api/internal/domain"
	"github.com/devforum/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// VoteHandler handles vote endpoints on threads and comments. Both routes
// share one handler; the entity kind is fixed per route.
type VoteHandler struct {
	svc vote.Service
}

func NewVoteHandler(svc vote.Service) *VoteHandler {
	return &VoteHandler{svc: svc}
}

type voteRequest struct {
	Direction string `json:"direction"`
}

func (h *VoteHandler) VoteThread(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, domain.KindThread)
}

func (h *VoteHandler) VoteComment(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, domain.KindComment)
}

func (h *VoteHandler) apply(w http.ResponseWriter, r *http.Request, kind domain.EntityKind) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	direction, err := domain.ParseVoteDirection(req.Direction)
	if err != nil {
		httpError(w, err)
		return
	}
	result, err := h.svc.Apply(r.Context(), kind, chi.URLParam(r, "id"), claims.UserID, direction)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
