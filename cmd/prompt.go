package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/desertthunder/formcheck/internal/shared"
)

// prompt returns value when set, otherwise asks for it on the runner's input.
func (r *Runner) prompt(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	r.writePlain("%s: ", label)
	line, err := r.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, label)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret is [Runner.prompt] without echo when the input is a terminal.
func (r *Runner) promptSecret(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	f, ok := r.input.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return r.prompt("", label)
	}

	r.writePlain("%s: ", label)
	secret, err := term.ReadPassword(int(f.Fd()))
	r.writePlain("\n")
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}
	return string(secret), nil
}
