// Package utils provides small host and terminal helpers for the CLI.
//
// # System Utilities
//
//   - CurrentHost: hostname, username, OS and architecture for device login
//   - SanitizeDeviceName: normalizes a hostname for display and storage
//
// # Terminal Utilities
//
//   - IsTerminal, IsOutputTerminal: decide whether to prompt or animate
//   - Confirm: yes/no prompt
//   - ReadStdin: reads piped input such as a .env file
package utils
