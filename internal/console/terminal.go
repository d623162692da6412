package console

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// PromptPassword asks for the password without echo when fd is a terminal.
// ok is false when fd is not a terminal and nothing was read.
func PromptPassword(fd int, out io.Writer) (password string, ok bool, err error) {
	if !term.IsTerminal(fd) {
		return "", false, nil
	}
	fmt.Fprint(out, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", false, fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(string(raw), "\r\n"), true, nil
}

// TerminalWidth reports the column count of fd, or DefaultWidth.
func TerminalWidth(fd int) int {
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}
