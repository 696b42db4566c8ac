package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/cnnpruning/mayo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating if the program should exit cleanly, or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("mayo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
mayo - a model-description compiler: loads YAML documents, resolves
markers, and validates the declared layer graph.

Usage:
  mayo [options] <argument>...

Arguments are processed in sequence; each may be one of:
   * A path to a YAML document (.yaml or .yml) or a directory of them.
     Each document is deep-merged into the configuration.
   * An override formatted as "<dot.key.path>=<yaml_value>",
     e.g. "dataset.task.num_classes=100".
   * An action to execute:
        validate  load, resolve and validate the layer graph (default)
        export    print the fully resolved document as YAML
        info      print the model name and ordered layer pipeline

Options:
`)
		flagSet.PrintDefaults()
	}

	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No arguments provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg := app.Config{
		LogFormat: logFormat,
		LogLevel:  logLevel,
	}
	for _, arg := range flagSet.Args() {
		switch {
		case isDocumentPath(arg):
			cfg.Paths = append(cfg.Paths, arg)
		case strings.Contains(arg, "="):
			key, value, _ := strings.Cut(arg, "=")
			if key == "" || value == "" {
				return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("malformed override %q", arg)}
			}
			cfg.Overrides = append(cfg.Overrides, app.Override{Key: key, Value: value})
		case arg == app.ActionValidate || arg == app.ActionExport || arg == app.ActionInfo:
			cfg.Actions = append(cfg.Actions, arg)
		default:
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf(
				"unrecognized argument %q: not a YAML path, override, or action", arg)}
		}
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}

// isDocumentPath treats any argument with a YAML extension, or without an
// "=" and naming an extensionless path separator, as a document path.
func isDocumentPath(arg string) bool {
	switch filepath.Ext(arg) {
	case ".yaml", ".yml":
		return true
	}
	// Directories of documents are allowed; anything containing a path
	// separator is taken as one.
	return strings.ContainsRune(arg, '/') && !strings.Contains(arg, "=")
}
