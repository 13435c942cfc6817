package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/orbis/internal/geom"
	"github.com/ayusman/orbis/internal/log"
	"github.com/ayusman/orbis/internal/store"
	"github.com/ayusman/orbis/internal/voice"
)

// CommandReloader receives the full command table after every change.
type CommandReloader interface {
	SetCommands(commands []voice.Command) error
}

// CommandHandler serves /api/commands and /api/commands/{id}.
type CommandHandler struct {
	store    *store.Store
	reloader CommandReloader
}

// NewCommandHandler creates a CommandHandler. reloader may be nil.
func NewCommandHandler(s *store.Store, reloader CommandReloader) *CommandHandler {
	return &CommandHandler{store: s, reloader: reloader}
}

// ServeHTTP routes collection and item requests.
func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/commands"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type commandRequest struct {
	Name     string     `json:"name"`
	Keywords []string   `json:"keywords"`
	Rotation *geom.Vec2 `json:"rotation"`
	Position int        `json:"position"`
}

type commandResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Keywords  []string  `json:"keywords"`
	Rotation  geom.Vec2 `json:"rotation"`
	Position  int       `json:"position"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

type listCommandsResponse struct {
	Commands []commandResponse `json:"commands"`
}

func toCommandResponse(c *store.Command) commandResponse {
	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return commandResponse{
		ID:        c.ID,
		Name:      c.Name,
		Keywords:  keywords,
		Rotation:  c.Rotation,
		Position:  c.Position,
		CreatedAt: c.CreatedAt.Format(timeFormat),
		UpdatedAt: c.UpdatedAt.Format(timeFormat),
	}
}

func (h *CommandHandler) list(w http.ResponseWriter, r *http.Request) {
	commands, err := h.store.Commands().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list commands")
		return
	}

	response := listCommandsResponse{Commands: make([]commandResponse, 0, len(commands))}
	for _, c := range commands {
		response.Commands = append(response.Commands, toCommandResponse(c))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *CommandHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	c, err := h.store.Commands().GetByID(id)
	if err != nil {
		h.storeError(w, err, "Failed to get command")
		return
	}
	writeJSON(w, http.StatusOK, toCommandResponse(c))
}

func (h *CommandHandler) create(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if !hasKeyword(req.Keywords) {
		writeError(w, http.StatusBadRequest, "At least one keyword is required")
		return
	}
	if req.Rotation == nil {
		writeError(w, http.StatusBadRequest, "Rotation is required")
		return
	}

	c := &store.Command{
		ID:       uuid.New().String(),
		Name:     strings.TrimSpace(req.Name),
		Keywords: req.Keywords,
		Rotation: *req.Rotation,
		Position: req.Position,
	}
	if err := h.store.Commands().Create(c); err != nil {
		writeError(w, http.StatusConflict, "Failed to create command")
		return
	}

	h.reload()
	writeJSON(w, http.StatusCreated, toCommandResponse(c))
}

func (h *CommandHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	c, err := h.store.Commands().GetByID(id)
	if err != nil {
		h.storeError(w, err, "Failed to get command")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		c.Name = name
	}
	if req.Keywords != nil {
		if !hasKeyword(req.Keywords) {
			writeError(w, http.StatusBadRequest, "At least one keyword is required")
			return
		}
		c.Keywords = req.Keywords
	}
	if req.Rotation != nil {
		c.Rotation = *req.Rotation
	}
	if req.Position != 0 {
		c.Position = req.Position
	}

	if err := h.store.Commands().Update(c); err != nil {
		h.storeError(w, err, "Failed to update command")
		return
	}

	h.reload()
	writeJSON(w, http.StatusOK, toCommandResponse(c))
}

func (h *CommandHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Commands().Delete(id); err != nil {
		h.storeError(w, err, "Failed to delete command")
		return
	}

	h.reload()
	w.WriteHeader(http.StatusNoContent)
}

func (h *CommandHandler) storeError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Command not found")
		return
	}
	writeError(w, http.StatusInternalServerError, message)
}

// reload pushes the stored table to the interpreter. The write already
// succeeded, so a failure here is logged rather than returned.
func (h *CommandHandler) reload() {
	if h.reloader == nil {
		return
	}
	commands, err := h.store.Commands().VoiceCommands()
	if err != nil {
		log.Error("reload voice commands", "err", err)
		return
	}
	if err := h.reloader.SetCommands(commands); err != nil {
		log.Warn("apply voice commands", "err", err)
	}
}

func hasKeyword(keywords []string) bool {
	for _, k := range keywords {
		if strings.TrimSpace(k) != "" {
			return true
		}
	}
	return false
}
