package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/metricbus/internal/logfields"
)

// Exit codes returned by the metricbus binary.
const (
	ExitOK       = 0
	ExitGeneral  = 1
	ExitUsage    = 2
	ExitLookup   = 3
	ExitConfig   = 7
	ExitExternal = 8
	ExitStorage  = 9
	ExitInternal = 10
	ExitRuntime  = 12
)

var exitByCategory = map[ErrorCategory]int{
	CategoryValidation:    ExitUsage,
	CategoryNotFound:      ExitLookup,
	CategoryAlreadyExists: ExitLookup,
	CategoryUnsupported:   ExitLookup,
	CategoryConfig:        ExitConfig,
	CategoryNetwork:       ExitExternal,
	CategoryPublish:       ExitExternal,
	CategoryStorage:       ExitStorage,
	CategoryInternal:      ExitInternal,
	CategoryRuntime:       ExitRuntime,
}

// CLIErrorAdapter turns command errors into a stderr message and exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates an adapter. Verbose mode prints full error chains
// and logs every error.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor maps the outermost classified error to an exit code.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	if c, ok := AsClassified(err); ok {
		if code, known := exitByCategory[c.Category()]; known {
			return code
		}
	}
	return ExitGeneral
}

// FormatError renders err for the terminal. Internal errors hide their detail
// unless verbose.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	c, ok := AsClassified(err)
	switch {
	case !ok:
		return fmt.Sprintf("Error: %v", err)
	case a.verbose:
		return c.Error()
	case c.Category() == CategoryInternal:
		return "Internal error occurred (use -v for details)"
	default:
		return fmt.Sprintf("Error: %s", c.Message())
	}
}

// Report writes err to w, logs it when warranted and returns the exit code.
func (a *CLIErrorAdapter) Report(w io.Writer, err error) int {
	if err == nil {
		return ExitOK
	}
	if a.shouldLog(err) {
		a.logError(err)
	}
	_, _ = fmt.Fprintln(w, a.FormatError(err))
	return a.ExitCodeFor(err)
}

// HandleError reports err on stderr and exits. It returns normally for nil.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	os.Exit(a.Report(os.Stderr, err))
}

func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	if c, ok := AsClassified(err); ok {
		return c.IsFatal()
	}
	return true
}

func (a *CLIErrorAdapter) logError(err error) {
	c, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", logfields.Error(err))
		return
	}
	attrs := c.LogAttrs()
	if c.CanRetry() {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	a.logger.LogAttrs(context.Background(), levelFor(c.Severity()), c.Message(), attrs...)
}
