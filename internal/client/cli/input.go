package cli

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a seam so tests can run without a terminal.
var readPassword = func(fd int) ([]byte, error) {
	return term.ReadPassword(fd)
}

// GetSimpleText prompts and reads a single trimmed line from the app reader.
func (a *App) GetSimpleText(prompt string) (string, error) {
	fmt.Printf("%s: ", prompt)
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword reads a password without echoing it.
func (a *App) GetPassword(prompt string) ([]byte, error) {
	fmt.Printf("%s: ", prompt)
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, err
	}
	return b, nil
}
