package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogCreatesFileAndDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secretsync", "audit.jsonl")
	logger := New(path)

	logger.Log(Entry{Operation: OpPush, Project: "api", Environment: "development", KeysCount: 3})

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Audit log file was not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %o", info.Mode().Perm())
	}
}

func TestLogAppendsEntries(t *testing.T) {
	logger := New(filepath.Join(t.TempDir(), "audit.jsonl"))

	logger.Log(Entry{Operation: OpLogin, Scope: "/"})
	logger.Log(Entry{Operation: OpPush, Project: "api", KeysCount: 2, RequestID: "req-1"})
	logger.Log(Entry{Operation: OpDelete, Project: "api", Keys: []string{"A"}, DeletedCount: 1})

	entries, err := logger.ReadEntries()
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[1].RequestID != "req-1" || entries[1].KeysCount != 2 {
		t.Errorf("Unexpected push entry %+v", entries[1])
	}
	if entries[2].Keys[0] != "A" {
		t.Errorf("Unexpected delete entry %+v", entries[2])
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Timestamp, "Z") {
			t.Errorf("Expected UTC timestamp, got %q", entry.Timestamp)
		}
	}
}

func TestLogKeepsExplicitTimestamp(t *testing.T) {
	logger := New(filepath.Join(t.TempDir(), "audit.jsonl"))
	logger.Log(Entry{Timestamp: "2024-01-15T10:30:00.000000Z", Operation: OpSetup})

	entries, _ := logger.ReadEntries()
	if len(entries) != 1 || entries[0].Timestamp != "2024-01-15T10:30:00.000000Z" {
		t.Errorf("Expected explicit timestamp to be kept, got %+v", entries)
	}
}

func TestDisabledLogger(t *testing.T) {
	var nilLogger *Logger
	nilLogger.Log(Entry{Operation: OpPush})
	New("").Log(Entry{Operation: OpPush})

	entries, err := New("").ReadEntries()
	if err != nil || entries != nil {
		t.Errorf("Expected no entries from disabled logger, got (%v, %v)", entries, err)
	}
}

func TestReadEntriesMissingFile(t *testing.T) {
	entries, err := New(filepath.Join(t.TempDir(), "missing.jsonl")).ReadEntries()
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestParseEntriesSkipsMalformedLines(t *testing.T) {
	data := []byte(`{"ts":"2024-01-01T00:00:00.000000Z","op":"push"}
not json
{"ts":"2024-01-02T00:00:00.000000Z","op":"delete"

{"ts":"2024-01-03T00:00:00.000000Z","op":"login"}`)

	entries := ParseEntries(data)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 valid entries, got %d", len(entries))
	}
	if entries[0].Operation != "push" || entries[1].Operation != "login" {
		t.Errorf("Unexpected entries %+v", entries)
	}
}

func TestFilter(t *testing.T) {
	entries := []Entry{
		{Operation: OpPush, Project: "api"},
		{Operation: OpDelete, Project: "api"},
		{Operation: OpPush, Project: "web"},
	}

	if got := Filter(entries, OpPush, ""); len(got) != 2 {
		t.Errorf("Expected 2 push entries, got %d", len(got))
	}
	if got := Filter(entries, "", "api"); len(got) != 2 {
		t.Errorf("Expected 2 api entries, got %d", len(got))
	}
	if got := Filter(entries, OpPush, "web"); len(got) != 1 {
		t.Errorf("Expected 1 web push entry, got %d", len(got))
	}
}
