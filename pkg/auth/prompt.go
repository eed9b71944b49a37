package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// PromptPassword reads a password from the terminal without echo.
// When stdin is not a terminal (piped input, CI) it falls back to a
// plain line read.
func PromptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PromptTwoFactorCode reads a two-factor verification code.
func PromptTwoFactorCode() (string, error) {
	fmt.Fprint(os.Stderr, "Two-factor code: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read verification code: %w", err)
	}

	code := strings.TrimSpace(line)
	if code == "" {
		return "", fmt.Errorf("verification code is empty")
	}
	return code, nil
}
