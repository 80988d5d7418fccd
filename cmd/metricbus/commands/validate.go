package commands

import (
	"fmt"

	"git.home.luguber.info/inful/metricbus/internal/config"
)

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct{}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	out := g.out()
	_, _ = fmt.Fprintf(out, "configuration valid: namespace %s, %d publishers, %d metrics\n",
		cfg.Service.Namespace, len(cfg.Publishers), len(cfg.Metrics))
	for _, p := range cfg.Publishers {
		_, _ = fmt.Fprintf(out, "  publisher %s (%s)\n", p.Key, p.Type)
	}
	return nil
}
