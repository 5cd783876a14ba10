package cmd

import (
	"os"

	isatty "github.com/mattn/go-isatty"
)

// StdoutIsTerminal reports whether standard output is attached to an
// interactive terminal. Build and syncback fall back to non-interactive
// behavior when it isn't, even if --non-interactive wasn't passed, since a
// confirmation prompt has nothing to read from in that case.
func StdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
