package workflows

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PolarWolf314/secretsync/internal/audit"
	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
)

const (
	entryTimeLayout = "2006-01-02T15:04:05.000000Z"
	dateLayout      = "2006-01-02"
)

// LogOptions configures the log workflow.
type LogOptions struct {
	// Limit is the maximum number of entries to return. 0 means no limit.
	Limit int

	// Reverse orders entries from most recent to oldest when true.
	Reverse bool

	// Operations filters entries by operation (comma-separated).
	Operations string

	// Project filters entries by project name.
	Project string

	// Since and Until bound entries by date (YYYY-MM-DD). Until is inclusive.
	Since string
	Until string
}

// LogResult contains the outcome of a log operation.
type LogResult struct {
	Entries []audit.Entry

	// TotalEntriesBeforeFilter is the count of entries before filtering.
	TotalEntriesBeforeFilter int
}

// Log reads and filters the local audit log.
//
// Returns ErrNoAuditLog if no audit log exists.
// Returns ErrInvalidDateFormat if a date filter is malformed.
func Log(e *Env, opts LogOptions) (*LogResult, error) {
	if e.Audit == nil || e.Audit.Path == "" {
		return nil, kerrors.ErrNoAuditLog
	}
	if _, err := os.Stat(e.Audit.Path); errors.Is(err, os.ErrNotExist) {
		return nil, kerrors.ErrNoAuditLog
	}

	entries, err := e.Audit.ReadEntries()
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	result := &LogResult{TotalEntriesBeforeFilter: len(entries)}
	filtered := audit.Filter(entries, "", opts.Project)

	if opts.Operations != "" {
		filtered = filterByOperations(filtered, strings.Split(opts.Operations, ","))
	}

	if opts.Since != "" {
		since, err := time.Parse(dateLayout, opts.Since)
		if err != nil {
			return nil, fmt.Errorf("%w: --since date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidDateFormat)
		}
		filtered = filterTime(filtered, func(t time.Time) bool { return !t.Before(since) })
	}

	if opts.Until != "" {
		until, err := time.Parse(dateLayout, opts.Until)
		if err != nil {
			return nil, fmt.Errorf("%w: --until date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidDateFormat)
		}
		until = until.Add(24*time.Hour - time.Nanosecond)
		filtered = filterTime(filtered, func(t time.Time) bool { return !t.After(until) })
	}

	if opts.Reverse {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	// The limit always keeps the most recent entries.
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		if opts.Reverse {
			filtered = filtered[:opts.Limit]
		} else {
			filtered = filtered[len(filtered)-opts.Limit:]
		}
	}

	result.Entries = filtered
	return result, nil
}

func filterByOperations(entries []audit.Entry, ops []string) []audit.Entry {
	want := make(map[string]bool, len(ops))
	for _, op := range ops {
		want[strings.ToLower(strings.TrimSpace(op))] = true
	}

	var out []audit.Entry
	for _, entry := range entries {
		if want[strings.ToLower(entry.Operation)] {
			out = append(out, entry)
		}
	}
	return out
}

func filterTime(entries []audit.Entry, keep func(time.Time) bool) []audit.Entry {
	var out []audit.Entry
	for _, entry := range entries {
		t, err := parseEntryTime(entry.Timestamp)
		if err != nil {
			continue
		}
		if keep(t) {
			out = append(out, entry)
		}
	}
	return out
}

func parseEntryTime(ts string) (time.Time, error) {
	t, err := time.Parse(entryTimeLayout, ts)
	if err != nil {
		t, err = time.Parse(time.RFC3339, ts)
	}
	return t, err
}

// FormatDateTime formats an entry timestamp as YYYY-MM-DD HH:MM:SS.
func FormatDateTime(ts string) string {
	t, err := parseEntryTime(ts)
	if err != nil {
		if len(ts) >= 19 {
			return ts[:19]
		}
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

// FormatDetails summarises what an entry touched.
func FormatDetails(entry audit.Entry) string {
	switch entry.Operation {
	case audit.OpLogin, audit.OpLogout:
		return entry.Scope
	case audit.OpSetup:
		return target(entry)
	case audit.OpPush:
		return fmt.Sprintf("%s, %d secrets", target(entry), entry.KeysCount)
	case audit.OpDelete:
		return fmt.Sprintf("%s, %s", target(entry), strings.Join(entry.Keys, ", "))
	case audit.OpMergeRequest:
		return fmt.Sprintf("%s, %s", target(entry), strings.Join(entry.Keys, ", "))
	default:
		return ""
	}
}

func target(entry audit.Entry) string {
	return entry.Project + "/" + entry.Environment
}
