package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/ui"
	"github.com/PolarWolf314/secretsync/internal/utils"

	"github.com/briandowns/spinner"
)

// startSpinner starts a spinner on out unless output is verbose or not a
// terminal. The returned cleanup stops it and prints FinalMSG.
//
// spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, out io.Writer) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + message

	// Ignore color errors - continue without colored spinner if it fails.
	_ = s.Color("cyan")

	animate := !verbose && !debug && utils.IsOutputTerminal()
	if animate {
		s.Start()
	} else {
		Logger.Infof("%s", message)
	}

	cleanup := func() {
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if animate {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Fprint(out, finalMsg)
		}
	}

	return s, cleanup
}

// formatError turns a workflow error into the message shown to the user.
func formatError(err error) string {
	cross := ui.Error.Sprint("✗") + " "
	arrow := ui.Info.Sprint("→") + " "

	switch {
	case errors.Is(err, kerrors.ErrNotLoggedIn):
		return cross + "You are not logged in\n" +
			arrow + "Run " + ui.Code.Sprint("secretsync login") + " first"

	case errors.Is(err, kerrors.ErrTokenSealedElsewhere):
		return cross + "Your stored login belongs to another machine\n" +
			arrow + "Run " + ui.Code.Sprint("secretsync login --force") + " to login again"

	case errors.Is(err, kerrors.ErrAlreadyLoggedIn):
		return cross + "You are already logged in\n" +
			arrow + "Run " + ui.Code.Sprint("secretsync login --force") + " to replace the stored token"

	case errors.Is(err, kerrors.ErrProjectNotConfigured):
		return cross + "This directory has not been set up\n" +
			arrow + "Run " + ui.Code.Sprint("secretsync setup <project> <environment>") + " first"

	case errors.Is(err, kerrors.ErrAuthenticationFailed):
		return cross + "Authentication failed\n" +
			arrow + "Your token may have been revoked. Run " + ui.Code.Sprint("secretsync login --force")

	case errors.Is(err, kerrors.ErrPermissionDenied):
		return cross + "You do not have access to this project\n" +
			ui.Error.Sprint("Error: ") + err.Error()

	case errors.Is(err, kerrors.ErrProjectNotFound),
		errors.Is(err, kerrors.ErrEnvironmentNotFound):
		return cross + err.Error() + "\n" +
			arrow + "Run " + ui.Code.Sprint("secretsync projects") + " to see what you can access"

	case errors.Is(err, kerrors.ErrEncryptedElsewhere):
		return cross + "Some values were encrypted on another device\n" +
			arrow + "Pull them again with " + ui.Code.Sprint("--encrypt") + " on this device"

	case errors.Is(err, kerrors.ErrDecryptionFailed):
		return cross + "Some secrets could not be decrypted\n" +
			arrow + "Use " + ui.Code.Sprint("--skip-undecryptable") + " to pull the rest"

	case errors.Is(err, kerrors.ErrTimeout),
		errors.Is(err, kerrors.ErrNetwork):
		return cross + "Could not reach the secretsync backend\n" +
			ui.Error.Sprint("Error: ") + err.Error()

	case errors.Is(err, kerrors.ErrLoginTimeout):
		return cross + "The login was not confirmed in time\n" +
			arrow + "Run " + ui.Code.Sprint("secretsync login") + " to try again"

	default:
		return cross + err.Error()
	}
}

// isUnexpectedError returns true if the error should cause a non-zero exit
// in addition to its user-facing message.
func isUnexpectedError(err error) bool {
	switch {
	case errors.Is(err, kerrors.ErrNotLoggedIn),
		errors.Is(err, kerrors.ErrAlreadyLoggedIn),
		errors.Is(err, kerrors.ErrProjectNotConfigured),
		errors.Is(err, kerrors.ErrNothingToPush):
		return false
	default:
		return true
	}
}

// fail records err as the spinner's final message and returns the error
// the command should exit with.
func fail(s *spinner.Spinner, err error) error {
	Logger.Errorf("Command failed: %v", err)
	s.FinalMSG = formatError(err)
	if isUnexpectedError(err) {
		return errSilent{err}
	}
	return nil
}

// errSilent marks an error whose message was already shown to the user.
type errSilent struct{ err error }

func (e errSilent) Error() string { return e.err.Error() }
func (e errSilent) Unwrap() error { return e.err }
