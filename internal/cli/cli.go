package cli

import (
	"flag"
	"fmt"
	"io"
	"time"
)

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is an error that carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Options holds the parsed command line. Only flags present in set override
// the loaded configuration.
type Options struct {
	ArchivePath string
	ConfigPath  string
	URL         string
	Token       string
	DryRun      bool
	Timeout     time.Duration
	MaxRetries  int
	LogLevel    string
	LogFormat   string
	Output      string

	set map[string]bool
}

// IsSet reports whether the named flag was given explicitly
func (o *Options) IsSet(name string) bool {
	return o.set[name]
}

// Parse processes command-line arguments. It returns the options, a boolean
// indicating the program should exit cleanly (help was requested), or an
// ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("course-importer", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
course-importer - Convert a course archive and upload it to an LMS.

Usage:
  course-importer [options] ARCHIVE

Arguments:
  ARCHIVE
    Path to a course zip archive containing course.json.

Without --url and --token (or LMS_API_URL and LMS_API_TOKEN) the course
document is printed instead of uploaded.

Options:
`)
		flagSet.PrintDefaults()
	}

	opts := &Options{set: make(map[string]bool)}
	flagSet.StringVar(&opts.URL, "url", "", "LMS API base URL (or set LMS_API_URL).")
	flagSet.StringVar(&opts.Token, "token", "", "LMS API token (or set LMS_API_TOKEN).")
	flagSet.BoolVar(&opts.DryRun, "dry-run", false, "Print the course JSON instead of uploading.")
	flagSet.DurationVar(&opts.Timeout, "timeout", 0, "Per-attempt upload timeout, e.g. 30s (default 2m0s).")
	flagSet.IntVar(&opts.MaxRetries, "max-retries", 0, "Retries after the first failed upload attempt (default 3).")
	flagSet.StringVar(&opts.ConfigPath, "config", "", "Path to a YAML config file (or set COURSE_IMPORTER_CONFIG).")
	flagSet.StringVar(&opts.LogLevel, "log-level", "", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.StringVar(&opts.LogFormat, "log-format", "", "Log output format. Options: 'text' or 'json'.")
	flagSet.StringVar(&opts.Output, "output", "", "Write the dry-run JSON to this file instead of stdout.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	flagSet.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	switch flagSet.NArg() {
	case 0:
		flagSet.Usage()
		return nil, false, &ExitError{Code: ExitUsage, Message: "missing ARCHIVE argument"}
	case 1:
		opts.ArchivePath = flagSet.Arg(0)
	default:
		return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("expected one ARCHIVE argument, got %d", flagSet.NArg())}
	}

	if opts.IsSet("max-retries") && opts.MaxRetries < 0 {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid max-retries: must be non-negative"}
	}
	if opts.IsSet("timeout") && opts.Timeout <= 0 {
		return nil, false, &ExitError{Code: ExitUsage, Message: "invalid timeout: must be positive"}
	}

	return opts, false, nil
}
