// Package commands implements the metricbus command line.
package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/metricbus/internal/config"
)

// Global carries state shared by every subcommand.
type Global struct {
	// Out receives user-facing output; logs go to stderr.
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"metricbus.yaml" env:"METRICBUS_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve    ServeCmd    `cmd:"" help:"Run the agent: admin API, scrape endpoints, runtime sampler"`
	Emit     EmitCmd     `cmd:"" help:"Publish one record synchronously"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	Validate ValidateCmd `cmd:"" help:"Load and validate the configuration file"`
	Query    QueryCmd    `cmd:"" help:"Read records from a SQLite record store"`
}

// AfterApply installs a default logger before any command runs. Commands that
// load a configuration replace it with the configured one.
func (c *CLI) AfterApply() error {
	slog.SetDefault(slog.New(NewLogHandler(os.Stderr, c.level(config.LogLevelInfo), config.LogFormatAuto)))
	return nil
}

func (c *CLI) level(configured config.LogLevel) slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return configured.Slog()
}

// configureLogging applies the logging section of cfg.
func (c *CLI) configureLogging(cfg *config.Config) {
	slog.SetDefault(slog.New(NewLogHandler(os.Stderr, c.level(cfg.Logging.Level), cfg.Logging.Format)))
}
