// Package logger provides leveled console logging for secretsync commands.
//
// The logger supports multiple verbosity levels controlled by command-line
// flags. Output is prefixed and colored with fatih/color.
//
// # Verbosity Levels
//
//   - --verbose: Shows info and warning messages
//   - --debug: Shows all messages including debug details and errors
//
// Without flags only WarnfAlways reaches the terminal; command results are
// printed by the cmd layer itself.
//
// # Log Methods
//
//	Logger.Infof()       // Shown with --verbose or --debug
//	Logger.Debugf()      // Shown only with --debug
//	Logger.Warnf()       // Shown with --verbose or --debug
//	Logger.WarnfAlways() // Always shown
//	Logger.Errorf()      // Shown with --debug
//
// Secret values are never passed to the logger. Keys and counts are fine.
package logger
