package changelog

import (
	"os"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := t.TempDir() + "/changelog.ini"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfigReadsChangesetID(t *testing.T) {
	path := writeConfig(t, "[changelog]\nchangeset_id = 42\n")
	_, id, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if id != 42 {
		t.Fatalf("got %d, want 42", id)
	}
}

func TestLoadConfigMissingSectionErrors(t *testing.T) {
	path := writeConfig(t, "[other]\nkey = 1\n")
	if _, _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing changeset_id")
	}
}

func TestChangesetIDSequenceAdvancesAndFlushesOnce(t *testing.T) {
	path := writeConfig(t, "[changelog]\nchangeset_id = 5\n")
	seq, err := NewChangesetIDSequence(path)
	if err != nil {
		t.Fatalf("NewChangesetIDSequence: %v", err)
	}
	if got := seq.Next(); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
	if got := seq.Next(); got != 6 {
		t.Fatalf("got %d, want 6", got)
	}
	if err := seq.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "changeset_id = 7") {
		t.Fatalf("expected persisted id 7, got %q", data)
	}
}

func TestSavePreservesOtherLines(t *testing.T) {
	path := writeConfig(t, "[changelog]\nchangeset_id = 1\nauthor = tolkien\n[other]\nkey = val\n")
	cfg, _, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.Save(9); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "author = tolkien") || !strings.Contains(text, "[other]") || !strings.Contains(text, "key = val") {
		t.Fatalf("expected unrelated lines preserved, got %q", text)
	}
	if !strings.Contains(text, "changeset_id = 9") {
		t.Fatalf("expected updated id, got %q", text)
	}
}
