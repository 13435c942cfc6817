package app

import (
	"errors"
	"time"

	"github.com/ayusman/orbis/internal/capture"
	"github.com/ayusman/orbis/internal/controller"
	"github.com/ayusman/orbis/internal/detector"
	"github.com/ayusman/orbis/internal/log"
	"github.com/ayusman/orbis/internal/tray"
)

// runPipeline ticks the controller at the configured frame rate until stop
// is closed. Each tick:
//  1. reads a camera frame and hands it to the preview
//  2. runs the motion gate and, if open, hand detection
//  3. advances the controller by the measured frame time
//  4. publishes the snapshot to the hub and the tray
//
// Camera and detector errors yield an empty hand list so the globe keeps
// settling toward its target.
func (a *App) runPipeline(stop <-chan struct{}) {
	ticker := time.NewTicker(a.config.Tuning.FrameInterval())
	defer ticker.Stop()

	last := a.clock.Now()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := a.clock.Now()
			a.tick(now.Sub(last))
			last = now
		}
	}
}

// tick runs one frame.
func (a *App) tick(dt time.Duration) controller.Snapshot {
	var hands []detector.HandLandmarks
	if a.IsEnabled() {
		hands = a.detect()
	}
	snap := a.controller.OnFrame(hands, a.screen, dt)
	a.publish(snap)
	return snap
}

func (a *App) detect() []detector.HandLandmarks {
	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		if !errors.Is(err, capture.ErrNoFrame) {
			log.Debug("error reading frame", "err", err)
		}
		return nil
	}
	defer frame.Close()

	if a.config.Preview != nil {
		if err := a.config.Preview.Update(frame); err != nil {
			log.Debug("error updating preview", "err", err)
		}
	}

	if !a.gate.Allow(frame) {
		return nil
	}

	hands, err := a.config.Detector.Detect(frame)
	if err != nil {
		log.Debug("error detecting hands", "err", err)
		return nil
	}
	return hands
}

func (a *App) publish(snap controller.Snapshot) {
	if a.config.Hub != nil {
		if err := a.config.Hub.Broadcast(snap); err != nil {
			log.Debug("error broadcasting snapshot", "err", err)
		}
	}
	if a.config.Display != nil {
		a.config.Display.Update(tray.Status{
			VoiceActive: snap.VoiceActive,
			Sector:      snap.Sector,
			Message:     snap.Status,
		})
	}
}
