package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/repairdesk/internal/models"
	"github.com/garnizeh/repairdesk/internal/tracker"
)

// JobsHandler serves the job list view and the status-update workflow, both
// backed by the tracker controller's materialized collection.
type JobsHandler struct {
	ctrl *tracker.Controller
}

func NewJobsHandler(ctrl *tracker.Controller) *JobsHandler {
	return &JobsHandler{ctrl: ctrl}
}

// ListJobs derives a filtered view for this request. Query params q, status,
// range and sort map onto the filter criteria; refresh=1 forces a store fetch
// first. Criteria are client-held: each request derives from a snapshot of the
// raw collection with its own criteria, so concurrent requests never observe
// each other's filters.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if refresh, _ := strconv.ParseBool(q.Get("refresh")); refresh {
		if err := h.ctrl.Refresh(r.Context()); err != nil {
			http.Error(w, "failed to fetch jobs", http.StatusBadGateway)
			return
		}
	}

	cr := tracker.DefaultCriteria()
	cr.Query = q.Get("q")
	if s := q.Get("status"); s != "" {
		if s != tracker.StatusAll && !models.Status(s).Valid() {
			http.Error(w, "invalid status filter", http.StatusBadRequest)
			return
		}
		cr.Status = s
	}
	if dr := q.Get("range"); dr != "" {
		switch tracker.DateRange(dr) {
		case tracker.RangeAll, tracker.RangeToday, tracker.RangeWeek, tracker.RangeMonth:
			cr.DateRange = tracker.DateRange(dr)
		default:
			http.Error(w, "invalid date range", http.StatusBadRequest)
			return
		}
	}
	if sb := q.Get("sort"); sb != "" {
		switch tracker.SortOrder(sb) {
		case tracker.SortNewest, tracker.SortOldest, tracker.SortStatus:
			cr.SortBy = tracker.SortOrder(sb)
		default:
			http.Error(w, "invalid sort order", http.StatusBadRequest)
			return
		}
	}

	items := tracker.Derive(h.ctrl.Jobs(), cr, time.Now())
	if items == nil {
		items = []models.Job{}
	}

	writeJSON(w, map[string]any{"total": len(items), "items": items}, http.StatusOK)
}

// ListStatuses returns the enumerated status values for the transition picker.
func (h *JobsHandler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"statuses": models.Statuses}, http.StatusOK)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus applies the two-phase status transition to one job.
func (h *JobsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "job id required", http.StatusBadRequest)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	err := h.ctrl.UpdateStatus(r.Context(), id, models.Status(req.Status))
	switch {
	case err == nil:
		writeJSON(w, map[string]any{"id": id, "status": req.Status}, http.StatusOK)
	case errors.Is(err, tracker.ErrUnknownStatus):
		http.Error(w, "unknown status", http.StatusBadRequest)
	case errors.Is(err, tracker.ErrJobNotFound):
		http.Error(w, "job not found", http.StatusNotFound)
	default:
		http.Error(w, "failed to update job status", http.StatusInternalServerError)
	}
}
