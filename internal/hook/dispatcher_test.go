package hook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatcher_DeliversToSubscribers(t *testing.T) {
	dir := t.TempDir()
	log := filepath.Join(t.TempDir(), "events.log")
	writeHook(t, dir, Manifest{Name: "sectors", Executable: "run.sh", Events: []string{EventSector}},
		"cat >> "+log+"\necho >> "+log+"\necho '{\"success\":true}'\n")

	m := NewManager(dir)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	d := NewDispatcher(m, NewExecutor(5*time.Second), 0)
	defer d.Close()

	d.Fire(Event{Type: EventCommand, Command: "Asia"})
	d.Fire(Event{Type: EventSector, From: "Africa", Sector: "Asia"})

	waitFor(t, func() bool { return d.Runs() == 1 })

	data, err := os.ReadFile(log)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"sector":"Asia"`) || strings.Contains(string(data), `"type":"command"`) {
		t.Errorf("unexpected hook input: %s", data)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, Manifest{Name: "slow", Executable: "run.sh"}, "exec sleep 10\n")

	m := NewManager(dir)
	m.Discover()
	d := NewDispatcher(m, NewExecutor(10*time.Second), 1)

	// The first event occupies the worker, the second fills the queue.
	for i := 0; i < 5; i++ {
		d.Fire(Event{Type: EventSector})
	}

	waitFor(t, func() bool { return d.Dropped() >= 3 })

	start := time.Now()
	d.Close()
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Close() took %v, running hook should be killed", elapsed)
	}
}

func TestDispatcher_NoHooks(t *testing.T) {
	d := NewDispatcher(NewManager(""), NewExecutor(0), 0)
	d.Fire(Event{Type: EventSector})
	d.Close()
	if d.Runs() != 0 {
		t.Errorf("Runs() = %d, want 0", d.Runs())
	}
}
