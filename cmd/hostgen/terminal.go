package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// switchMode is the value of the --color and --ui flags.
type switchMode string

const (
	switchAuto switchMode = "auto"
	switchOn   switchMode = "on"
	switchOff  switchMode = "off"
)

func parseSwitch(flag, value string) (switchMode, error) {
	switch m := switchMode(strings.ToLower(strings.TrimSpace(value))); m {
	case "":
		return switchAuto, nil
	case switchAuto, switchOn, switchOff:
		return m, nil
	}
	return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
}

// resolve decides an auto switch with detect.
func (m switchMode) resolve(detect func() bool) bool {
	switch m {
	case switchOn:
		return true
	case switchOff:
		return false
	}
	return detect()
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) // #nosec G115 -- fd fits int
}

// colorDetect: stdout is a terminal and NO_COLOR is unset.
func colorDetect() bool {
	return isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == ""
}

// tuiDetect: the progress view draws on stderr while diagnostics go to
// stdout, so both have to be terminals.
func tuiDetect() bool {
	return isTerminal(os.Stdout) && isTerminal(os.Stderr)
}

// terminalWidth is the column count of f, or 0 when f is not a terminal.
func terminalWidth(f *os.File) int {
	if !isTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd())) // #nosec G115 -- fd fits int
	if err != nil || w <= 0 {
		return 0
	}
	return w
}
