package hook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeHook creates dir/name with a manifest and an executable shell script.
func writeHook(t *testing.T, dir string, manifest Manifest, script string) *Hook {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("hook scripts need a POSIX shell")
	}

	hookDir := filepath.Join(dir, manifest.Name)
	if err := os.MkdirAll(hookDir, 0o755); err != nil {
		t.Fatalf("create hook dir: %v", err)
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(hookDir, ManifestFile), data, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	exe := filepath.Join(hookDir, manifest.Executable)
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	return &Hook{Manifest: manifest, Path: hookDir, Executable: exe}
}
