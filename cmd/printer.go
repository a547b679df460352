// Package cmd implements the CLI subcommands.
package cmd

import "ferro.is/voxic/internal/i18n"

// Printer formats CLI output in the system locale.
var Printer = i18n.NewCLIPrinter()
