// Package workflows provides high-level orchestration for secretsync commands.
//
// Workflows coordinate the session, remote store and config packages to
// implement complete user-facing features. Each workflow handles a single
// command's business logic, independent of CLI concerns like flag parsing,
// spinners, and output formatting.
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Every workflow runs against an explicit Env built once per invocation by
// NewEnv. Tests build an Env by hand pointing at a fake backend.
//
// # Available Workflows
//
//   - Login, Logout: Manage the device token of a directory scope
//   - Projects: List the projects the user belongs to
//   - Setup: Bind a directory to a project environment
//   - Pull: Fetch and decrypt the secrets of the bound environment
//   - Push, Delete: Reconcile local changes into the bound environment
//   - MergeRequest: Propose a change for review
//   - Log: Read the local audit trail
//
// # Error Handling
//
// Workflows return sentinel errors from the internal/errors package so the
// CLI layer can pick a message without string matching:
//
//	result, err := workflows.Pull(ctx, env, workflows.PullOptions{})
//	if errors.Is(err, kerrors.ErrNotLoggedIn) {
//	    // Suggest running login
//	}
package workflows
