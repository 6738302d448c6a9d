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

type ReportHandler struct {
	repo *db.Repository
	log  *log.Logger
}

func NewReportHandler(repo *db.Repository, log *log.Logger) *ReportHandler {
	return &ReportHandler{repo: repo, log: log}
}

type createReportRequest struct {
	ReportedUserID *int   `json:"reported_user_id"`
	ReportedBlipID *int   `json:"reported_blip_id"`
	Reason         string `json:"reason"`
}

type resolveReportRequest struct {
	Action string `json:"action"`
	UserID *int   `json:"user_id"`
	BlipID *int   `json:"blip_id"`
}

// Create files a report against a user, a blip, or both.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reporterID := middleware.GetUserID(r.Context())
	report, err := h.repo.CreateReport(reporterID, req.ReportedUserID, req.ReportedBlipID, req.Reason)
	if err != nil {
		writeError(w, h.log, err, "Error creating report")
		return
	}

	h.log.Printf("Report %d filed by user %d", report.ID, reporterID)
	writeMessage(w, http.StatusCreated, "Report submitted successfully")
}

// ListForAdmin serves the moderation queue: pending reports by default,
// everything with ?status=all.
func (h *ReportHandler) ListForAdmin(w http.ResponseWriter, r *http.Request) {
	pendingOnly := r.URL.Query().Get("status") != "all"
	reports, err := h.repo.ListReports(pendingOnly)
	if err != nil {
		writeError(w, h.log, err, "Error fetching reports")
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// Resolve applies a moderation decision. The status transition and the
// ban/delete side effect commit together or not at all.
func (h *ReportHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	reportID, err := strconv.Atoi(chi.URLParam(r, "reportID"))
	if err != nil || reportID <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid report ID")
		return
	}

	var req resolveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.repo.ResolveReport(reportID, req.Action, req.UserID, req.BlipID); err != nil {
		writeError(w, h.log, err, "Error resolving report")
		return
	}

	h.log.Printf("Report %d resolved with action %q", reportID, req.Action)
	writeMessage(w, http.StatusOK, "Report resolved successfully")
}
