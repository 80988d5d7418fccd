package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/metricbus/internal/agent"
	"git.home.luguber.info/inful/metricbus/internal/config"
	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
)

// EmitCmd implements the 'emit' command.
type EmitCmd struct {
	Metric    string             `arg:"" help:"Metric name, with or without namespace"`
	Value     *float64           `help:"Value of the unnamed field"`
	Field     map[string]float64 `help:"Named field (repeatable)" placeholder:"KEY=VALUE"`
	Tag       map[string]string  `help:"Tag (repeatable)" placeholder:"KEY=VALUE"`
	At        time.Time          `help:"Record timestamp (RFC3339); now when unset"`
	Publisher string             `short:"p" help:"Publisher key; the metric's default when unset"`
	Timeout   time.Duration      `help:"Time allowed for connecting and publishing" default:"30s"`
}

func (e *EmitCmd) Run(g *Global, root *CLI) error {
	if e.Value == nil && len(e.Field) == 0 {
		return derrors.ValidationError("emit needs --value or at least one --field").Build()
	}
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	root.configureLogging(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), e.Timeout)
	defer cancel()

	a, err := agent.New(ctx, cfg)
	if err != nil {
		return err
	}
	svc := a.Service()
	err = e.publish(ctx, a)
	return errors.Join(err, svc.Close(ctx), e.report(g, err))
}

func (e *EmitCmd) publish(ctx context.Context, a *agent.Agent) error {
	b, err := a.Service().Record(e.Metric)
	if err != nil {
		return err
	}
	b.Tags(e.Tag)
	for k, v := range e.Field {
		b.Field(k, v)
	}
	if e.Value != nil {
		b.Value(*e.Value)
	}
	if !e.At.IsZero() {
		b.At(e.At)
	}
	if e.Publisher != "" {
		return b.PublishTo(ctx, e.Publisher)
	}
	return b.PublishSync(ctx)
}

func (e *EmitCmd) report(g *Global, err error) error {
	if err != nil {
		return nil
	}
	_, werr := fmt.Fprintf(g.out(), "published %s\n", e.Metric)
	return werr
}
