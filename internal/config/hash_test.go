package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAndVerifyChecksums(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "service:\n  name: locked\n")
	if err := WriteChecksums(path); err != nil {
		t.Fatalf("WriteChecksums: %v", err)
	}

	if _, err := Load(path); err != nil {
		t.Fatalf("Load with matching checksums: %v", err)
	}

	// Tamper and reload
	if err := os.WriteFile(path, []byte("service:\n  name: edited\n"), 0644); err != nil {
		t.Fatalf("tamper config: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected hash mismatch after edit")
	}
	if !strings.Contains(err.Error(), "hash mismatch") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadWithoutChecksumsSucceeds(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "service:\n  name: unlocked\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load without manifest: %v", err)
	}
}

func TestLoadChecksumsRejectsUnknownVersion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("service: {}\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	manifest := "version: 2\ngenerated_at: now\nhashes: {}\n"
	if err := os.WriteFile(filepath.Join(dir, ".checksums"), []byte(manifest), 0600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	if _, err := LoadChecksums(configPath); err == nil {
		t.Fatal("expected version error")
	}
}

func TestComputeBlake3HashIsStable(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "service: {}\n")
	h1, err := ComputeBlake3Hash(path)
	if err != nil {
		t.Fatalf("ComputeBlake3Hash: %v", err)
	}
	h2, err := ComputeBlake3Hash(path)
	if err != nil {
		t.Fatalf("ComputeBlake3Hash: %v", err)
	}
	if h1 != h2 || len(h1) != 64 {
		t.Fatalf("unstable or malformed hash: %q vs %q", h1, h2)
	}
}
