package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PierreExeter/gmail-agent/internal/service/triage"
	"github.com/PierreExeter/gmail-agent/internal/store"
)

type DraftHandler struct {
	triageService *triage.Service
}

func NewDraftHandler(triageService *triage.Service) *DraftHandler {
	return &DraftHandler{
		triageService: triageService,
	}
}

func (h *DraftHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	drafts, err := h.triageService.ListDrafts(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		slog.Error("failed to list drafts", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, drafts)
}

type draftActionRequest struct {
	DraftID string `json:"draft_id"`
	Body    string `json:"body"`
}

// HandleAction dispatches approve, reject, edit, and send by the last path
// segment. Illegal status transitions come back as 409.
func (h *DraftHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req draftActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DraftID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	action := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	ctx := r.Context()

	switch action {
	case "approve":
		rec, err := h.triageService.ApproveDraft(ctx, req.DraftID)
		if err != nil {
			h.actionError(w, action, req.DraftID, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case "reject":
		rec, err := h.triageService.RejectDraft(ctx, req.DraftID)
		if err != nil {
			h.actionError(w, action, req.DraftID, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case "edit":
		if req.Body == "" {
			http.Error(w, "body is required", http.StatusBadRequest)
			return
		}
		rec, check, err := h.triageService.EditDraft(ctx, req.DraftID, req.Body)
		if err != nil {
			h.actionError(w, action, req.DraftID, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"draft":    rec,
			"approval": check,
		})
	case "send":
		sentID, err := h.triageService.SendDraft(ctx, req.DraftID)
		if err != nil {
			h.actionError(w, action, req.DraftID, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"sent_message_id": sentID})
	default:
		http.NotFound(w, r)
	}
}

func (h *DraftHandler) actionError(w http.ResponseWriter, action, id string, err error) {
	slog.Error("draft action failed", "action", action, "draft_id", id, "error", err)
	msg := err.Error()
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "draft not found", http.StatusNotFound)
	case strings.Contains(msg, "illegal draft transition"), strings.Contains(msg, "only approved"):
		http.Error(w, msg, http.StatusConflict)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
