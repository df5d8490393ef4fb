// Package detector decides how output is rendered for the current environment.
package detector

import (
	"os"

	"golang.org/x/term"
)

// LogFormat is the rendering of log lines.
type LogFormat int

const (
	// FormatAuto detects the format from the environment.
	FormatAuto LogFormat = iota
	// FormatPretty renders colored, human-readable lines.
	FormatPretty
	// FormatJSON renders one JSON object per line.
	FormatJSON
)

func (f LogFormat) String() string {
	switch f {
	case FormatPretty:
		return "pretty"
	case FormatJSON:
		return "json"
	default:
		return "auto"
	}
}

// IsCI reports whether a CI environment variable is set.
func IsCI() bool {
	ci := os.Getenv("CI")
	return ci == "true" || ci == "1"
}

// DetectEnvironment returns the format suited to stderr: pretty on an
// interactive terminal, JSON in CI or when stderr is redirected.
func DetectEnvironment() LogFormat {
	isTTY := term.IsTerminal(int(os.Stderr.Fd()))
	if !isTTY || IsCI() {
		return FormatJSON
	}
	return FormatPretty
}

// ResolveFormat applies the user's setting to the detected format.
// setting is one of "auto", "pretty", "json" or empty.
func ResolveFormat(detected LogFormat, setting string) LogFormat {
	switch setting {
	case "pretty", "text":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return detected
	}
}
