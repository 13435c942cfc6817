package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/orbis/internal/controller"
	"github.com/ayusman/orbis/internal/gesture"
	"github.com/ayusman/orbis/internal/store"
	"github.com/ayusman/orbis/internal/voice"
)

// recordingSink feeds the controller and records history, as the app does.
type recordingSink struct {
	ctrl  *controller.Controller
	store *store.Store
}

func (r recordingSink) HandleUtterance(text, source string) (voice.Command, bool) {
	cmd, ok := r.ctrl.OnUtterance(text)
	r.store.Utterances().Record(&store.Utterance{
		Text: text, CommandID: cmd.ID, CommandName: cmd.Name, Matched: ok, Source: source,
	})
	return cmd, ok
}

func newIntegration(t *testing.T) (*httptest.Server, *controller.Controller) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.Commands().Seed(voice.DefaultCommands()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctrl, err := controller.New(controller.DefaultConfig())
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	t.Cleanup(ctrl.Teardown)

	ts := httptest.NewServer(New(Config{
		Store:      s,
		State:      ctrl,
		Hub:        NewHub(),
		Utterances: recordingSink{ctrl: ctrl, store: s},
		Commands:   ctrl,
	}))
	t.Cleanup(ts.Close)
	return ts, ctrl
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestAPI_UtteranceDrivesController(t *testing.T) {
	ts, ctrl := newIntegration(t)

	resp := postJSON(t, ts.URL+"/api/utterances", `{"text": "go to asia"}`)
	var result struct {
		Matched bool   `json:"matched"`
		Command string `json:"command"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	if !result.Matched || result.Command != "Asia" {
		t.Fatalf("result = %+v", result)
	}

	snap := ctrl.OnFrame(nil, gesture.Screen{Width: 1920, Height: 1080}, 0)
	if snap.Source != "voice" || snap.Status != "Voice: Asia" {
		t.Errorf("snapshot = %+v", snap)
	}

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	var state controller.Snapshot
	json.NewDecoder(resp.Body).Decode(&state)
	resp.Body.Close()
	if state.Frame != snap.Frame || state.Source != "voice" {
		t.Errorf("state = %+v", state)
	}

	resp, err = http.Get(ts.URL + "/api/utterances?limit=5")
	if err != nil {
		t.Fatalf("GET utterances: %v", err)
	}
	var history struct {
		Utterances []struct {
			Text    string `json:"text"`
			Command string `json:"command"`
			Source  string `json:"source"`
		} `json:"utterances"`
	}
	json.NewDecoder(resp.Body).Decode(&history)
	resp.Body.Close()
	if len(history.Utterances) != 1 || history.Utterances[0].Command != "Asia" || history.Utterances[0].Source != store.SourceHTTP {
		t.Errorf("history = %+v", history)
	}
}

func TestAPI_CommandWorkflowReloadsInterpreter(t *testing.T) {
	ts, ctrl := newIntegration(t)
	client := ts.Client()

	// 1. Create a command
	resp := postJSON(t, ts.URL+"/api/commands", `{"name": "Oceania", "keywords": ["australia"], "rotation": {"x": 0, "y": 3.2}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// 2. The controller hears it at once
	if cmd, ok := ctrl.OnUtterance("australia"); !ok || cmd.Name != "Oceania" {
		t.Fatalf("new command not active: %+v %v", cmd, ok)
	}

	// 3. Delete it
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/commands/"+created.ID, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	// 4. And it is gone from the interpreter
	if _, ok := ctrl.OnUtterance("australia"); ok {
		t.Error("deleted command still matches")
	}
	if len(ctrl.Commands()) != 5 {
		t.Errorf("commands = %d, want 5", len(ctrl.Commands()))
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	ts := httptest.NewServer(New(Config{}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
	}
	json.NewDecoder(resp.Body).Decode(&health)
	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
