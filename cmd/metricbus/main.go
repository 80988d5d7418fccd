// Command metricbus runs and drives a metricbus agent.
package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/metricbus/cmd/metricbus/commands"
	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
	"git.home.luguber.info/inful/metricbus/internal/version"
)

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("metricbus"),
		kong.Description("Record metrics once, publish them to Prometheus, InfluxDB, NATS, Redis and SQLite."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)

	err := parser.Run(&commands.Global{Out: os.Stdout}, &cli)
	derrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
