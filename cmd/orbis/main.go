// Command orbis steers a browser globe with hand gestures and voice commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/orbis/internal/app"
	"github.com/ayusman/orbis/internal/capture"
	"github.com/ayusman/orbis/internal/config"
	"github.com/ayusman/orbis/internal/detector"
	"github.com/ayusman/orbis/internal/hook"
	"github.com/ayusman/orbis/internal/log"
	"github.com/ayusman/orbis/internal/pyservice"
	"github.com/ayusman/orbis/internal/server"
	"github.com/ayusman/orbis/internal/store"
	"github.com/ayusman/orbis/internal/tray"
	"github.com/ayusman/orbis/internal/voice"
)

func main() {
	if err := run(); err != nil {
		log.Error("orbis exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   = flag.String("config", config.DefaultConfigPath, "tuning file (JSON); missing file means defaults")
		addr         = flag.String("addr", ":8080", "HTTP listen address")
		cameraID     = flag.Int("camera", 0, "camera device index")
		dbPath       = flag.String("db", "", "SQLite database path (default ~/.orbis/orbis.db)")
		hookDir      = flag.String("hooks", "", "hook directory (default ~/.orbis/hooks)")
		logLevel     = flag.String("log-level", "info", "log level: debug, info, warn, error")
		noTray       = flag.Bool("no-tray", false, "run without the system tray")
		speechScript = flag.String("speech-script", "", "path to "+voice.ScriptName)
		handScript   = flag.String("hand-script", "", "path to "+detector.ScriptName)
		lang         = flag.String("lang", "", "speech recognition language, e.g. en-US or zh-CN")
	)
	flag.Parse()

	log.Init(*logLevel)

	tuning, err := config.LoadTuningOrDefault(*configPath)
	if err != nil {
		return err
	}

	dataDir, err := dataDir()
	if err != nil {
		return err
	}
	if *dbPath == "" {
		*dbPath = filepath.Join(dataDir, "orbis.db")
	}
	if *hookDir == "" {
		*hookDir = filepath.Join(dataDir, "hooks")
	}

	st, err := store.New(*dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	hooks := hook.NewManager(*hookDir)
	if err := hooks.Discover(); err != nil {
		log.Warn("hook discovery failed", "dir", *hookDir, "err", err)
	}
	for _, h := range hooks.List() {
		log.Info("hook loaded", "name", h.Manifest.Name, "events", h.Manifest.Events)
	}
	dispatcher := hook.NewDispatcher(hooks, hook.NewExecutor(hook.DefaultTimeout), hook.DefaultQueueSize)
	defer dispatcher.Close()

	camCfg := capture.DefaultConfig()
	camCfg.DeviceID = *cameraID

	hub := server.NewHub()
	preview := capture.NewPreview()

	var display app.StatusDisplay
	var tr *tray.Tray
	if !*noTray {
		tr = tray.New()
		display = tr
	}

	application, err := app.New(app.Config{
		Tuning:     tuning,
		Camera:     capture.NewCamera(camCfg),
		Detector:   newDetector(*handScript),
		Recognizer: voice.NewProcessRecognizer(voice.ProcessConfig{Script: *speechScript, Language: *lang}),
		Store:      st,
		Preview:    preview,
		Hub:        hub,
		Display:    display,
		Hooks:      dispatcher,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		application.Stop()
		return err
	}

	srv := server.New(server.Config{
		StaticDir:  findWebDir(dataDir),
		Store:      st,
		State:      application,
		Hub:        hub,
		Preview:    preview,
		Utterances: application,
		Commands:   application,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", *addr)
		return srv.Run(gctx, *addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		application.Stop()
		return nil
	})

	if tr != nil {
		tr.SetEnabled(application.IsEnabled())
		tr.OnToggle(application.SetEnabled)
		tr.OnOpen(func() { openBrowser(browserURL(*addr)) })
		tr.OnQuit(stop)
		go func() {
			<-gctx.Done()
			tr.Quit()
		}()
		tr.Run()
		stop()
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("orbis stopped")
	return err
}

// newDetector starts the MediaPipe detector, falling back to a detector
// that never sees hands so voice control still works.
func newDetector(script string) detector.Detector {
	cfg := detector.DefaultConfig()
	cfg.ScriptPath = script
	d, err := detector.NewMediaPipeDetector(cfg)
	if err != nil {
		log.Warn("hand detection unavailable, gesture control disabled", "err", err)
		return detector.NewMockDetector()
	}
	return d
}

func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	dir := filepath.Join(home, pyservice.HomeDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// findWebDir returns the first existing of web, ../web, ../../web and
// <dataDir>/web, or "" when none exists.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("failed to open browser", "url", url, "err", err)
		return
	}
	go cmd.Wait()
}
