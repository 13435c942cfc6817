package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/orbis/internal/store"
	"github.com/ayusman/orbis/internal/voice"
)

// Utterance history limits.
const (
	DefaultUtteranceLimit = 20
	MaxUtteranceLimit     = 500
)

// UtteranceSink accepts a final transcript from any source.
type UtteranceSink interface {
	HandleUtterance(text, source string) (voice.Command, bool)
}

// UtteranceHandler serves /api/utterances. POST injects a transcript as if
// the speech recognizer had produced it; GET lists recent history.
type UtteranceHandler struct {
	store *store.Store
	sink  UtteranceSink
}

// NewUtteranceHandler creates an UtteranceHandler. Either argument may be
// nil, which disables the matching method.
func NewUtteranceHandler(s *store.Store, sink UtteranceSink) *UtteranceHandler {
	return &UtteranceHandler{store: s, sink: sink}
}

type utteranceRequest struct {
	Text string `json:"text"`
}

type utteranceResult struct {
	Matched bool   `json:"matched"`
	Command string `json:"command,omitempty"`
}

type utteranceResponse struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	Matched    bool   `json:"matched"`
	Command    string `json:"command,omitempty"`
	Source     string `json:"source"`
	ReceivedAt string `json:"received_at"`
}

type listUtterancesResponse struct {
	Utterances []utteranceResponse `json:"utterances"`
}

// ServeHTTP dispatches on method.
func (h *UtteranceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.inject(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *UtteranceHandler) inject(w http.ResponseWriter, r *http.Request) {
	if h.sink == nil {
		writeError(w, http.StatusServiceUnavailable, "Voice input is not available")
		return
	}

	var req utteranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	cmd, ok := h.sink.HandleUtterance(req.Text, store.SourceHTTP)
	writeJSON(w, http.StatusOK, utteranceResult{Matched: ok, Command: cmd.Name})
}

func (h *UtteranceHandler) list(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "History is not available")
		return
	}

	limit := DefaultUtteranceLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, MaxUtteranceLimit)
	}

	rows, err := h.store.Utterances().Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list utterances")
		return
	}

	response := listUtterancesResponse{Utterances: make([]utteranceResponse, 0, len(rows))}
	for _, u := range rows {
		response.Utterances = append(response.Utterances, utteranceResponse{
			ID:         u.ID,
			Text:       u.Text,
			Matched:    u.Matched,
			Command:    u.CommandName,
			Source:     u.Source,
			ReceivedAt: u.ReceivedAt.Format(timeFormat),
		})
	}
	writeJSON(w, http.StatusOK, response)
}
