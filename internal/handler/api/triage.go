package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	triagedomain "github.com/PierreExeter/gmail-agent/internal/domain/triage"
	"github.com/PierreExeter/gmail-agent/internal/service/triage"
)

type TriageHandler struct {
	triageService *triage.Service
}

func NewTriageHandler(triageService *triage.Service) *TriageHandler {
	return &TriageHandler{
		triageService: triageService,
	}
}

type triageRequest struct {
	MessageID  string `json:"message_id"`
	Tone       string `json:"tone"`
	MaxResults int64  `json:"max_results"`
}

// HandleTriage runs the pipeline for one message, or for the latest batch
// when no message id is given.
func (h *TriageHandler) HandleTriage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req triageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	tone := triagedomain.Tone(req.Tone)
	if req.Tone == "" {
		tone = triagedomain.ToneFormal
	}
	if !tone.Valid() {
		http.Error(w, "unrecognized tone", http.StatusBadRequest)
		return
	}

	if req.MessageID != "" {
		result, err := h.triageService.TriageMessage(r.Context(), req.MessageID, tone)
		if err != nil {
			slog.Error("triage failed", "message_id", req.MessageID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	results, err := h.triageService.TriageLatest(r.Context(), maxResults, tone)
	if err != nil {
		slog.Error("batch triage failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type modelRequest struct {
	ModelID string `json:"model_id"`
}

// HandleModel swaps the inference model at runtime.
func (h *TriageHandler) HandleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req modelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ModelID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	h.triageService.SetModel(req.ModelID)
	writeJSON(w, http.StatusOK, map[string]string{"model_id": req.ModelID})
}

type trustedSenderRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *TriageHandler) HandleTrustedSenders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req trustedSenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := h.triageService.AddTrustedSender(r.Context(), req.Email, req.Name); err != nil {
		slog.Error("failed to add trusted sender", "email", req.Email, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
