package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/metricbus/internal/backends/sqlitestore"
	"git.home.luguber.info/inful/metricbus/internal/config"
	derrors "git.home.luguber.info/inful/metricbus/internal/foundation/errors"
)

// QueryCmd implements the 'query' command.
type QueryCmd struct {
	DB     string            `name:"db" help:"SQLite database; defaults to the first sqlite publisher in the configuration"`
	Metric string            `help:"Namespaced metric name"`
	Field  *string           `help:"Only rows of this field; empty string selects the unnamed field"`
	Tag    map[string]string `help:"Only rows carrying this tag (repeatable)" placeholder:"KEY=VALUE"`
	Since  time.Duration     `help:"Only rows newer than this"`
	Limit  int               `help:"Maximum rows" default:"100"`
	JSON   bool              `name:"json" help:"Print rows as JSON lines"`
	List   bool              `help:"List the stored metric names instead of rows"`
}

func (q *QueryCmd) Run(g *Global, root *CLI) error {
	path, err := q.dbPath(root)
	if err != nil {
		return err
	}
	store, err := sqlitestore.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if q.List {
		names, err := store.Metrics(context.Background())
		if err != nil {
			return err
		}
		for _, n := range names {
			_, _ = fmt.Fprintln(g.out(), n)
		}
		return nil
	}

	query := sqlitestore.Query{
		Metric: q.Metric,
		Field:  q.Field,
		Tags:   q.Tag,
		Limit:  q.Limit,
	}
	if q.Since > 0 {
		query.Since = time.Now().Add(-q.Since)
	}
	rows, err := store.Query(context.Background(), query)
	if err != nil {
		return err
	}

	if q.JSON {
		enc := json.NewEncoder(g.out())
		for _, r := range rows {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tMETRIC\tFIELD\tVALUE\tTAGS")
	for _, r := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\n",
			r.At.UTC().Format(time.RFC3339Nano), r.Metric, r.Field, r.Value, formatTags(r.Tags))
	}
	return tw.Flush()
}

func (q *QueryCmd) dbPath(root *CLI) (string, error) {
	if q.DB != "" {
		return q.DB, nil
	}
	cfg, err := config.Load(root.Config)
	if err != nil {
		return "", err
	}
	for _, p := range cfg.Publishers {
		if p.Type == config.PublisherSQLite {
			return p.SQLite.Path, nil
		}
	}
	return "", derrors.ValidationError("no --db given and no sqlite publisher configured").
		WithContext("config", root.Config).
		Build()
}

func formatTags(tags map[string]string) string {
	keys := slices.Sorted(maps.Keys(tags))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+tags[k])
	}
	return strings.Join(parts, ",")
}
