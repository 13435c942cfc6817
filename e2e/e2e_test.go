package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/orbis/internal/app"
	"github.com/ayusman/orbis/internal/capture"
	"github.com/ayusman/orbis/internal/config"
	"github.com/ayusman/orbis/internal/controller"
	"github.com/ayusman/orbis/internal/detector"
	"github.com/ayusman/orbis/internal/server"
	"github.com/ayusman/orbis/internal/store"
)

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	defer s.Close()

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OrientationHand(0.5, 0.5, 0.2)})

	hub := server.NewHub()
	preview := capture.NewPreview()

	application, err := app.New(app.Config{
		Tuning:   config.DefaultTuning(),
		Camera:   cam,
		Detector: det,
		Store:    s,
		Preview:  preview,
		Hub:      hub,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(server.Config{
		Store:      s,
		State:      application,
		Hub:        hub,
		Preview:    preview,
		Utterances: application,
		Commands:   application,
	}))
	defer ts.Close()
	defer hub.Close()

	require.NoError(t, application.Start(context.Background()))
	defer application.Stop()

	client := ts.Client()

	t.Run("SnapshotsStream", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var snap controller.Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		assert.Equal(t, 1, snap.Hands)
		assert.Equal(t, "1 hand detected", snap.Status)
	})

	t.Run("CreateCommand", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/commands", "application/json",
			strings.NewReader(`{"name": "Arctic", "keywords": ["arctic", "north pole"], "rotation": {"x": 1.2, "y": 0}}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("VoiceCommandOverridesHand", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/utterances", "application/json",
			strings.NewReader(`{"text": "show me the north pole"}`))
		require.NoError(t, err)
		var result struct {
			Matched bool   `json:"matched"`
			Command string `json:"command"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		resp.Body.Close()
		assert.True(t, result.Matched)
		assert.Equal(t, "Arctic", result.Command)

		require.Eventually(t, func() bool {
			resp, err := client.Get(ts.URL + "/api/state")
			if err != nil {
				return false
			}
			defer resp.Body.Close()
			var snap controller.Snapshot
			if json.NewDecoder(resp.Body).Decode(&snap) != nil {
				return false
			}
			return snap.Source == "voice" && snap.Suppressing && snap.Status == "Voice: Arctic" && snap.Rotation.X > 0
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("History", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/utterances?limit=5")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body struct {
			Utterances []struct {
				Text    string `json:"text"`
				Matched bool   `json:"matched"`
				Command string `json:"command"`
				Source  string `json:"source"`
			} `json:"utterances"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Utterances, 1)
		assert.Equal(t, "Arctic", body.Utterances[0].Command)
		assert.Equal(t, store.SourceHTTP, body.Utterances[0].Source)
	})

	t.Run("Health", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
