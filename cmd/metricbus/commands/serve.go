package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/metricbus/internal/agent"
	"git.home.luguber.info/inful/metricbus/internal/config"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr    string `help:"Override http.addr"`
	NoWatch bool   `name:"no-watch" help:"Do not reload metric declarations when the config file changes"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	root.configureLogging(cfg)
	if s.Addr != "" {
		cfg.HTTP.Addr = s.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []agent.Option
	if !s.NoWatch {
		opts = append(opts, agent.WithConfigPath(root.Config))
	}
	a, err := agent.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
