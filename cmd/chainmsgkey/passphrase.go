package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

var passphraseFlag = &cli.StringFlag{
	Name:  "passwordfile",
	Usage: "file containing the keyfile passphrase, instead of a terminal prompt",
}

// resolvePassphrase reads a passphrase either from --passwordfile or, if
// unset, interactively from the terminal with echo disabled
// (golang.org/x/term.ReadPassword). When confirm is true (generate), the
// user is asked twice and the two entries must match.
func resolvePassphrase(ctx *cli.Context, confirm bool) (string, error) {
	if path := ctx.String(passphraseFlag.Name); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	pass, err := promptPassphrase("Passphrase: ")
	if err != nil {
		return "", err
	}
	if confirm {
		again, err := promptPassphrase("Repeat passphrase: ")
		if err != nil {
			return "", err
		}
		if pass != again {
			return "", errors.New("passphrases do not match")
		}
	}
	return pass, nil
}

func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return string(data), nil
	}
	// Non-interactive stdin (e.g. piped input in tests): fall back to a
	// plain line read.
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
