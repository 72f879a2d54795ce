// Package ui provides semantic text formatting for CLI output.
//
// Each formatter renders one kind of content (commands, paths, secret names,
// status markers). With colors available the text is colorized; when NO_COLOR
// is set or the terminal cannot show colors, plain decorations are used:
//
//	ui.Code.Sprint("secretsync login")   // `secretsync login`
//	ui.Highlight.Sprint("production")    // 'production'
//	ui.Muted.Sprint("2 skipped")         // (2 skipped)
//
// Mask hides secret values for display.
package ui
