package printer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/vitche/storage-timeline/pkg/timeline"
)

func init() {
	// Users can disable colors with NO_COLOR
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Output destinations, replaceable in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects normal and error output. Passing nil restores the defaults.
func SetOutput(out, errOut io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	stdout = out
	stderr = errOut
}

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(stdout, msg)
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(stdout, format, a...)
}

// Warning prints a warning message in yellow to stderr
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(stderr, msg)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Fprintf(stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with title, explanation and suggestions to
// stderr and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details printed between the
// explanation and the suggestions. Keys are printed in sorted order.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for key := range context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(stderr, "\n")
		for _, key := range keys {
			fmt.Fprintf(stderr, "  %s: %s\n", key, context[key])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Cobra does not print it (SilenceErrors)
	return fmt.Errorf("%s", title)
}

// Explain prints a bridge error with a title and suggestions matching its
// kind. Errors of unknown kind are printed with a generic title.
func Explain(err error) error {
	var (
		missing   *timeline.MissingRuntimeSupportError
		fetch     *timeline.AssetFetchError
		inst      *timeline.InstantiationError
		notInit   *timeline.NotInitializedError
		invalid   *timeline.InvalidArgumentError
		violation *timeline.BridgeContractViolationError
	)

	switch {
	case errors.As(err, &violation):
		return ErrorWithContext(
			"parser module does not honour the bridge contract",
			err.Error(),
			map[string]string{"Entry point": violation.EntryPoint},
			[]string{"Rebuild the module so it exports memory, alloc and parse"},
		)
	case errors.As(err, &missing):
		return ErrorWithContext(
			"missing runtime support",
			err.Error(),
			map[string]string{"Capability": missing.Capability},
			nil,
		)
	case errors.As(err, &inst):
		return ErrorWithContext(
			"failed to instantiate parser module",
			err.Error(),
			map[string]string{"Module": inst.Location},
			[]string{"Check that the file is a WebAssembly module built for wasip1"},
		)
	case errors.As(err, &fetch):
		ctx := map[string]string{"Location": fetch.Location}
		if fetch.Status != "" {
			ctx["Status"] = fetch.Status
		}
		return ErrorWithContext(
			"failed to fetch asset",
			err.Error(),
			ctx,
			[]string{
				"Check the location and try again",
				"Install the parser module:\n  stl install",
			},
		)
	case errors.As(err, &notInit):
		return Error("parser module not initialized", err.Error(), nil)
	case errors.As(err, &invalid):
		return Error("invalid argument", err.Error(), nil)
	default:
		return Error("command failed", err.Error(), nil)
	}
}
