package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoPassword is returned when the prompt received an empty password
var ErrNoPassword = errors.New("no password entered")

// PromptPassword asks for the module password. On a terminal the input is
// hidden; otherwise one line is read from in, so passwords can be piped.
func PromptPassword(in *os.File, out io.Writer, user string) (string, error) {
	_, _ = fmt.Fprintf(out, "Password for %s: ", user)

	var password string
	if term.IsTerminal(int(in.Fd())) {
		raw, err := term.ReadPassword(int(in.Fd()))
		_, _ = fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	} else {
		line, err := readLine(in)
		if err != nil {
			return "", err
		}
		password = line
	}

	if password == "" {
		return "", ErrNoPassword
	}
	return password, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
