package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is the value of run --ui.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	mode := uiMode(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return mode, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// shouldUseTUI reports whether the progress view is drawn on stderr. In auto
// mode that needs stderr on a terminal and the assembly going elsewhere than
// that terminal.
func shouldUseTUI(mode uiMode, toFile bool) bool {
	if mode != uiModeAuto {
		return mode == uiModeOn
	}
	return isTerminal(os.Stderr) && (toFile || !isTerminal(os.Stdout))
}
