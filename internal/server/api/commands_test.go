package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/orbis/internal/geom"
	"github.com/ayusman/orbis/internal/store"
	"github.com/ayusman/orbis/internal/voice"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

type fakeReloader struct {
	calls int
	last  []voice.Command
	err   error
}

func (f *fakeReloader) SetCommands(commands []voice.Command) error {
	f.calls++
	f.last = commands
	return f.err
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCommandHandler_List(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Commands().Seed(voice.DefaultCommands()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	handler := NewCommandHandler(s, nil)

	rec := do(t, handler, http.MethodGet, "/api/commands", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var response listCommandsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(response.Commands) != 5 {
		t.Fatalf("got %d commands, want 5", len(response.Commands))
	}
	if response.Commands[1].Name != "Asia" || response.Commands[1].Rotation != (geom.Vec2{X: 0.2, Y: 2.0}) {
		t.Errorf("commands[1] = %+v", response.Commands[1])
	}
}

func TestCommandHandler_ListEmpty(t *testing.T) {
	handler := NewCommandHandler(newTestStore(t), nil)

	rec := do(t, handler, http.MethodGet, "/api/commands", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body != "{\"commands\":[]}\n" {
		t.Errorf("body = %q, want an empty array", body)
	}
}

func TestCommandHandler_Create(t *testing.T) {
	s := newTestStore(t)
	reloader := &fakeReloader{}
	handler := NewCommandHandler(s, reloader)

	body := `{"name": "Oceania", "keywords": ["australia", "澳洲"], "rotation": {"x": 0.1, "y": 3.2}}`
	rec := do(t, handler, http.MethodPost, "/api/commands", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}

	var created commandResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" {
		t.Error("ID should be generated")
	}
	if created.Name != "Oceania" || created.Rotation.Y != 3.2 || len(created.Keywords) != 2 {
		t.Errorf("created = %+v", created)
	}

	if _, err := s.Commands().GetByID(created.ID); err != nil {
		t.Errorf("command not persisted: %v", err)
	}
	if reloader.calls != 1 || len(reloader.last) != 1 || reloader.last[0].Name != "Oceania" {
		t.Errorf("reloader = %+v", reloader)
	}
}

func TestCommandHandler_CreateValidation(t *testing.T) {
	handler := NewCommandHandler(newTestStore(t), nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing name", `{"keywords": ["a"], "rotation": {"x": 0, "y": 1}}`},
		{"blank keywords", `{"name": "n", "keywords": ["  "], "rotation": {"x": 0, "y": 1}}`},
		{"missing rotation", `{"name": "n", "keywords": ["a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, handler, http.MethodPost, "/api/commands", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			var response errorResponse
			json.NewDecoder(rec.Body).Decode(&response)
			if response.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestCommandHandler_CreateDuplicate(t *testing.T) {
	s := newTestStore(t)
	s.Commands().Seed(voice.DefaultCommands())
	handler := NewCommandHandler(s, nil)

	rec := do(t, handler, http.MethodPost, "/api/commands", `{"name": "Asia", "keywords": ["x"], "rotation": {"x": 0, "y": 0}}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestCommandHandler_Get(t *testing.T) {
	s := newTestStore(t)
	s.Commands().Seed(voice.DefaultCommands())
	handler := NewCommandHandler(s, nil)

	rec := do(t, handler, http.MethodGet, "/api/commands/europe", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got commandResponse
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Name != "Europe" {
		t.Errorf("Name = %q, want Europe", got.Name)
	}

	rec = do(t, handler, http.MethodGet, "/api/commands/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCommandHandler_Update(t *testing.T) {
	s := newTestStore(t)
	s.Commands().Seed(voice.DefaultCommands())
	reloader := &fakeReloader{}
	handler := NewCommandHandler(s, reloader)

	rec := do(t, handler, http.MethodPut, "/api/commands/asia", `{"keywords": ["asia", "japan"], "rotation": {"x": 0.1, "y": 2.2}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	got, err := s.Commands().GetByID("asia")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Asia" {
		t.Errorf("name should be unchanged, got %q", got.Name)
	}
	if len(got.Keywords) != 2 || got.Keywords[1] != "japan" || got.Rotation.Y != 2.2 {
		t.Errorf("update not applied: %+v", got)
	}
	if reloader.calls != 1 || len(reloader.last) != 5 {
		t.Errorf("reloader calls = %d, table = %d", reloader.calls, len(reloader.last))
	}

	rec = do(t, handler, http.MethodPut, "/api/commands/missing", `{"name": "x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = do(t, handler, http.MethodPut, "/api/commands/asia", `{"keywords": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty keywords: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCommandHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	s.Commands().Seed(voice.DefaultCommands())
	reloader := &fakeReloader{err: errors.New("torn down")}
	handler := NewCommandHandler(s, reloader)

	rec := do(t, handler, http.MethodDelete, "/api/commands/reset", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if _, err := s.Commands().GetByID("reset"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("command should be gone, got %v", err)
	}
	// A failing reloader does not fail the request.
	if reloader.calls != 1 {
		t.Errorf("reloader calls = %d, want 1", reloader.calls)
	}

	rec = do(t, handler, http.MethodDelete, "/api/commands/reset", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCommandHandler_MethodNotAllowed(t *testing.T) {
	handler := NewCommandHandler(newTestStore(t), nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/commands"},
		{http.MethodDelete, "/api/commands"},
		{http.MethodPost, "/api/commands/asia"},
		{http.MethodPatch, "/api/commands/asia"},
	}
	for _, tt := range tests {
		rec := do(t, handler, tt.method, tt.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}
