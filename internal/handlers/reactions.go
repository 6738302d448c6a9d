package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/amgad21/BlipVerse/internal/db"
	"github.com/amgad21/BlipVerse/internal/middleware"
)

type ReactionHandler struct {
	repo *db.Repository
	log  *log.Logger
}

func NewReactionHandler(repo *db.Repository, log *log.Logger) *ReactionHandler {
	return &ReactionHandler{repo: repo, log: log}
}

type reactionRequest struct {
	ReactionType string `json:"reaction_type"`
}

// React records the caller's reaction to a blip. A repeat from the same
// user replaces the previous kind instead of adding a second reaction.
func (h *ReactionHandler) React(w http.ResponseWriter, r *http.Request) {
	blipID, err := strconv.Atoi(chi.URLParam(r, "blipID"))
	if err != nil || blipID <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid blip ID")
		return
	}

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.repo.SetReaction(userID, blipID, req.ReactionType); err != nil {
		writeError(w, h.log, err, "Error adding reaction")
		return
	}
	writeMessage(w, http.StatusOK, "Reaction added successfully")
}
