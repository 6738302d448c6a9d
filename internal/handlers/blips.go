package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/amgad21/BlipVerse/internal/db"
	"github.com/amgad21/BlipVerse/internal/middleware"
	"github.com/amgad21/BlipVerse/internal/models"
)

// BlipHandler handles requests related to blips.
type BlipHandler struct {
	repo *db.Repository
	log  *log.Logger
}

// NewBlipHandler creates a new BlipHandler.
func NewBlipHandler(repo *db.Repository, log *log.Logger) *BlipHandler {
	return &BlipHandler{repo: repo, log: log}
}

type createBlipRequest struct {
	Content string `json:"content"`
}

type blipPage struct {
	Blips      []*models.BlipView `json:"blips"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// List serves a feed page. The cursor is opaque and keyset-based, so a page
// fetched mid-scroll never duplicates or skips rows when newer blips land.
func (h *BlipHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeMessage(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = n
	}
	if limit > 100 {
		limit = 100
	}

	var before *db.Cursor
	if s := r.URL.Query().Get("cursor"); s != "" {
		c, err := decodeCursor(s)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid cursor")
			return
		}
		before = c
	}

	blips, err := h.repo.ListBlips(before, limit)
	if err != nil {
		writeError(w, h.log, err, "Error fetching blips")
		return
	}

	page := blipPage{Blips: blips}
	if len(blips) == limit {
		last := blips[len(blips)-1]
		page.NextCursor = encodeCursor(&db.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	writeJSON(w, http.StatusOK, page)
}

// Create stores a new blip. Live subscribers receive it right after the
// write commits, before this response is sent.
func (h *BlipHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBlipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	blip, err := h.repo.CreateBlip(userID, req.Content)
	if err != nil {
		writeError(w, h.log, err, "Error creating blip")
		return
	}

	h.log.Printf("Blip %d created by user %d", blip.ID, userID)
	writeJSON(w, http.StatusCreated, blip)
}
