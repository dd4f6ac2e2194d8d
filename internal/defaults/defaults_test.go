package defaults

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JIWUCHAT_DATA_DIR", dir)

	got, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if got != dir {
		t.Errorf("Expected %s, got %s", dir, got)
	}

	p, err := Path(InstanceFile)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if p != filepath.Join(dir, InstanceFile) {
		t.Errorf("Path = %s", p)
	}
}

func TestEnsureDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "jiwuchat")
	t.Setenv("JIWUCHAT_DATA_DIR", dir)

	got, err := EnsureDataDir()
	if err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(got, ConfigFile)); err != nil {
		t.Errorf("config.yaml was not copied: %v", err)
	}
}

func TestEnsureDataDirKeepsUserEdits(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JIWUCHAT_DATA_DIR", dir)

	custom := []byte("Log:\n  Level: debug\n")
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), custom, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureDataDir(); err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(custom) {
		t.Errorf("user config overwritten: %q", data)
	}
}

func TestGetDefault(t *testing.T) {
	content, err := GetDefault(ConfigFile)
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}
	if len(content) == 0 || content[0] != '#' {
		t.Error("config.yaml should be a commented template")
	}
}
