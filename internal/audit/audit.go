package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Operations recorded in the audit trail.
const (
	OpLogin        = "login"
	OpLogout       = "logout"
	OpSetup        = "setup"
	OpPush         = "push"
	OpDelete       = "delete"
	OpMergeRequest = "merge-request"
)

// Entry represents a single audit log entry. Secret values never appear here.
type Entry struct {
	Timestamp string `json:"ts"` // RFC3339 with microseconds.
	Operation string `json:"op"`
	User      string `json:"user,omitempty"` // Email of the session user, when known.

	Project      string   `json:"project,omitempty"`
	Environment  string   `json:"environment,omitempty"`
	KeysCount    int      `json:"keys_count,omitempty"`
	DeletedCount int      `json:"deleted_count,omitempty"`
	Keys         []string `json:"keys,omitempty"` // Names only, for delete and merge-request.
	RequestID    string   `json:"request_id,omitempty"`
	Scope        string   `json:"scope,omitempty"` // For login and logout.
}

// Logger appends entries to a JSON Lines file.
type Logger struct {
	Path string
}

// New returns a Logger writing to path. An empty path disables logging.
func New(path string) *Logger {
	return &Logger{Path: path}
}

// Log appends an entry to the audit log.
// Failures are swallowed: operations should not fail just because audit
// logging failed.
func (l *Logger) Log(entry Entry) {
	if l == nil || l.Path == "" {
		return
	}

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	if err := os.MkdirAll(filepath.Dir(l.Path), 0700); err != nil {
		return
	}

	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log.
// Returns an empty slice if the log doesn't exist.
func (l *Logger) ReadEntries() ([]Entry, error) {
	if l == nil || l.Path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(l.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data), nil
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are skipped to tolerate partial writes.
func ParseEntries(data []byte) []Entry {
	var entries []Entry

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

// Filter returns the entries matching op and project. Empty arguments match everything.
func Filter(entries []Entry, op, project string) []Entry {
	var out []Entry
	for _, entry := range entries {
		if op != "" && entry.Operation != op {
			continue
		}
		if project != "" && entry.Project != project {
			continue
		}
		out = append(out, entry)
	}
	return out
}
