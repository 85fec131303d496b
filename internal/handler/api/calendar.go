package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/PierreExeter/gmail-agent/internal/domain/calendar"
	"github.com/PierreExeter/gmail-agent/internal/service/triage"
)

type CalendarHandler struct {
	triageService *triage.Service
}

func NewCalendarHandler(triageService *triage.Service) *CalendarHandler {
	return &CalendarHandler{
		triageService: triageService,
	}
}

// HandleSlots returns available meeting slots for the requested duration
// over the configured search window.
func (h *CalendarHandler) HandleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var duration time.Duration
	if v := r.URL.Query().Get("duration_minutes"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
		duration = time.Duration(minutes) * time.Minute
	}

	slots, err := h.triageService.ProposeSlots(r.Context(), duration)
	if err != nil {
		slog.Error("failed to propose slots", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

type meetingRequest struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees"`
	Location    string    `json:"location"`
}

// HandleMeetings creates a calendar event. Reaching this endpoint is the
// human confirmation; nothing schedules without it.
func (h *CalendarHandler) HandleMeetings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req meetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.Summary == "" {
		http.Error(w, "summary is required", http.StatusBadRequest)
		return
	}

	interval := calendar.Interval{Start: req.Start, End: req.End}
	if err := interval.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ev := &calendar.NewEvent{
		Summary:     req.Summary,
		Description: req.Description,
		Interval:    interval,
		Attendees:   req.Attendees,
		Location:    req.Location,
	}
	created, err := h.triageService.ScheduleMeeting(r.Context(), ev)
	if err != nil {
		slog.Error("failed to schedule meeting", "summary", req.Summary, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
