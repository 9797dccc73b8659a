package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// ExitUsage matches the code the flag package uses for bad arguments.
const ExitUsage = 2

var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// Exitf writes a formatted message to stderr and exits with code.
func Exitf(code int, format string, args ...any) {
	fmt.Fprintf(stderr, format+"\n", args...)
	exit(code)
}

// ExitOnConfigError ends the process when a command could not load its
// environment or flags. A help request exits cleanly.
func ExitOnConfigError(command string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		exit(0)
	default:
		Exitf(ExitUsage, "%s: invalid configuration: %v", command, err)
	}
}
