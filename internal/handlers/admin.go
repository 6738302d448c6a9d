package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/amgad21/BlipVerse/internal/db"
)

// AdminHandler serves the administrator user-management surface.
type AdminHandler struct {
	repo *db.Repository
	log  *log.Logger
}

func NewAdminHandler(repo *db.Repository, log *log.Logger) *AdminHandler {
	return &AdminHandler{repo: repo, log: log}
}

// ListUsers returns all accounts, most recent first.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers()
	if err != nil {
		writeError(w, h.log, err, "Error fetching users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Ban flags an account as banned.
func (h *AdminHandler) Ban(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	if err := h.repo.BanUser(userID); err != nil {
		writeError(w, h.log, err, "Error banning user")
		return
	}
	h.log.Printf("User %d banned", userID)
	writeMessage(w, http.StatusOK, "User banned successfully")
}

// Unban clears the banned flag.
func (h *AdminHandler) Unban(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	if err := h.repo.UnbanUser(userID); err != nil {
		writeError(w, h.log, err, "Error unbanning user")
		return
	}
	h.log.Printf("User %d unbanned", userID)
	writeMessage(w, http.StatusOK, "User unbanned successfully")
}

// Delete removes an account and every row referencing it in one
// transaction.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDParam(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteUserCascade(userID); err != nil {
		writeError(w, h.log, err, "Error deleting user")
		return
	}
	h.log.Printf("User %d deleted", userID)
	writeMessage(w, http.StatusOK, "User deleted successfully")
}

func (h *AdminHandler) userIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid user ID")
		return 0, false
	}
	return userID, true
}
