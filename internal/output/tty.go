package output

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether both stdout and stderr are attached to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}
