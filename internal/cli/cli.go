package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/vk/refinery/internal/app"
	"github.com/vk/refinery/internal/codec"
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

// Defaults are the flag defaults, read from the environment.
type Defaults struct {
	Manifest     string `env:"REFINERY_MANIFEST"      envDefault:"refinery"`
	OutputFormat string `env:"REFINERY_OUTPUT_FORMAT" envDefault:"json"`
	LogFormat    string `env:"REFINERY_LOG_FORMAT"    envDefault:"text"`
	LogLevel     string `env:"REFINERY_LOG_LEVEL"     envDefault:"info"`
	Workers      int    `env:"REFINERY_WORKERS"       envDefault:"1"`
}

// bringList collects repeated and comma-separated -bring values.
type bringList []string

func (b *bringList) String() string { return strings.Join(*b, ",") }

func (b *bringList) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*b = append(*b, p)
		}
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var defaults Defaults
	if err := env.Parse(&defaults); err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid environment: %v", err)}
	}

	flagSet := flag.NewFlagSet("refinery", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Refinery - Shape raw records into output documents with declarative refiners.

Usage:
  refinery [options] VIEW

Arguments:
  VIEW
    Name of a view, or of a refiner to use with only the -bring relations.

Options:
`)
		flagSet.PrintDefaults()
	}

	var bring bringList
	manifestFlag := flagSet.String("manifest", defaults.Manifest, "Path to a manifest .hcl file or a directory of them. Env: REFINERY_MANIFEST.")
	mFlag := flagSet.String("m", "", "Path to the manifest file or directory (shorthand).")
	inputFlag := flagSet.String("input", app.StdinPath, "Input document (.json, .yaml, .yml, .msgpack). '-' reads stdin.")
	inputFormatFlag := flagSet.String("input-format", "", "Input format, overriding the file extension. Options: 'json', 'yaml', 'msgpack'.")
	outputFormatFlag := flagSet.String("output-format", defaults.OutputFormat, "Output format. Options: 'json', 'yaml', 'msgpack'. Env: REFINERY_OUTPUT_FORMAT.")
	retainKeysFlag := flagSet.Bool("retain-keys", false, "Keep the keys of a keyed top-level collection in the output.")
	workersFlag := flagSet.Int("workers", defaults.Workers, "Number of concurrent workers for top-level collections. Env: REFINERY_WORKERS.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'. Env: REFINERY_LOG_FORMAT.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'. Env: REFINERY_LOG_LEVEL.")
	flagSet.Var(&bring, "bring", "Extra relation to bring as a dotted path, e.g. 'posts.comments'. Repeatable.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No view provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected one VIEW argument, got %d", flagSet.NArg())}
	}
	view := flagSet.Arg(0)

	manifest := *manifestFlag
	if *mFlag != "" {
		manifest = *mFlag
	}
	slog.Debug("Manifest path determined.", "path", manifest)

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
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ManifestPath: manifest,
		View:         view,
		Bring:        bring,
		InputPath:    *inputFlag,
		InputFormat:  codec.Format(*inputFormatFlag),
		OutputFormat: codec.Format(*outputFormatFlag),
		RetainKeys:   *retainKeysFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		WorkerCount:  *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
