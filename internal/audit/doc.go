// Package audit records remote mutations made from this machine.
//
// Every push, delete, merge request, login and logout is appended to a
// per-user audit log so a developer can see what they changed and when, and
// correlate it with backend logs through the request id.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	$XDG_CONFIG_HOME/secretsync/audit.jsonl
//
// Each entry contains the UTC timestamp, the operation, the project and
// environment, and key counts. Secret names are recorded for delete and
// merge-request; secret values never are.
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails the operation continues
// without error.
package audit
