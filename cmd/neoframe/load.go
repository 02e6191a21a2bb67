package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/go-neoframe"
)

func loadCommand() *cli.Command {
	flags := append(sourceFlags(), engineFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:    "uri",
			Usage:   "Neo4j connection URI (overrides config)",
			Sources: cli.EnvVars("NEOFRAME_URI"),
		},
		&cli.StringFlag{
			Name:    "username",
			Aliases: []string{"u"},
			Usage:   "Neo4j username",
			Sources: cli.EnvVars("NEOFRAME_USER"),
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Neo4j password",
			Sources: cli.EnvVars("NEOFRAME_PASS"),
		},
		&cli.StringFlag{
			Name:    "database",
			Aliases: []string{"d"},
			Usage:   "Neo4j database name",
			Sources: cli.EnvVars("NEOFRAME_DATABASE"),
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "concurrent store calls per phase",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "records per UNWIND statement",
			Value: neoframe.DefaultBatchSize,
		},
		&cli.BoolFlag{
			Name:  "strict-constraints",
			Usage: "fail the run when a constraint cannot be applied",
		},
		&cli.BoolFlag{
			Name:  "continue-on-error",
			Usage: "attempt every entity of a phase even after a failure",
		},
		&cli.BoolFlag{
			Name:  "verify",
			Usage: "count nodes and relationships in the store after loading",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print the result as JSON",
		},
	)

	return &cli.Command{
		Name:   "load",
		Usage:  "Project the table and merge it into Neo4j",
		Flags:  flags,
		Action: runLoad,
	}
}

func runLoad(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd.Bool("debug"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	neo4jCfg := neoframe.Neo4jConfig{}
	if cfg.Neo4j != nil {
		neo4jCfg = *cfg.Neo4j
	}
	// Override with flags if provided
	if uri := cmd.String("uri"); uri != "" {
		neo4jCfg.URI = uri
	}
	if username := cmd.String("username"); username != "" {
		neo4jCfg.Username = username
	}
	if password := cmd.String("password"); password != "" {
		neo4jCfg.Password = password
	}
	if database := cmd.String("database"); database != "" {
		neo4jCfg.Database = database
	}
	if neo4jCfg.URI == "" {
		return ErrNoConnectionURI
	}

	table, err := openTable(ctx, cmd)
	if err != nil {
		return err
	}
	logger.Info("table loaded", zap.Int("rows", table.RowCount()), zap.Strings("columns", table.Columns()))

	opts, err := engineOptions(cmd, cfg)
	if err != nil {
		return err
	}

	exec, err := neoframe.NewNeo4jExecutor(neo4jCfg)
	if err != nil {
		return err
	}
	defer func() { _ = exec.Close(context.Background()) }()

	if err := exec.Verify(ctx); err != nil {
		return fmt.Errorf("could not connect to %s: %w", neo4jCfg.URI, err)
	}

	store := neoframe.NewNeo4jStore(exec, cmd.Int("batch-size"))
	opts = append(opts,
		neoframe.WithLogger(logger),
		neoframe.WithWorkers(cmd.Int("workers")),
		neoframe.WithStrictConstraints(cmd.Bool("strict-constraints")),
		neoframe.WithContinueOnError(cmd.Bool("continue-on-error")),
	)
	engine := neoframe.New(table, store, opts...)
	if err := engine.Declare(cfg.Mapping); err != nil {
		return err
	}

	res, mergeErr := engine.Merge(ctx)
	if res != nil {
		sum := summarize(res)
		if mergeErr == nil && cmd.Bool("verify") {
			sum.Verified, err = verify(ctx, store, engine)
			if err != nil {
				logger.Warn("verification failed", zap.Error(err))
			}
		}
		if err := printSummary(output(cmd), sum, cmd.Bool("json")); err != nil {
			return err
		}
	}
	return mergeErr
}

// summary is the printable form of a neoframe.Result.
type summary struct {
	RunID               string           `json:"run_id"`
	State               string           `json:"state"`
	NodeTypesMerged     int              `json:"node_types_merged"`
	RelationshipsMerged int              `json:"relationships_merged"`
	Nodes               map[string]int64 `json:"nodes"`
	Relationships       map[string]int64 `json:"relationships"`
	Warnings            []string         `json:"warnings,omitempty"`
	Failures            []failure        `json:"failures,omitempty"`
	Verified            map[string]int64 `json:"verified,omitempty"`
	Duration            string           `json:"duration"`
}

type failure struct {
	Phase  string `json:"phase"`
	Entity string `json:"entity"`
	Error  string `json:"error"`
}

func summarize(res *neoframe.Result) summary {
	s := summary{
		RunID:               res.RunID,
		State:               res.State.String(),
		NodeTypesMerged:     res.NodeTypesMerged(),
		RelationshipsMerged: res.RelationshipsMerged(),
		Nodes:               res.NodeCounts,
		Relationships:       make(map[string]int64, len(res.RelationshipCounts)),
		Duration:            res.Duration.String(),
	}
	for k, n := range res.RelationshipCounts {
		s.Relationships[k.String()] = n
	}
	for _, w := range res.Warnings {
		s.Warnings = append(s.Warnings, w.Error())
	}
	for _, f := range res.Failures {
		s.Failures = append(s.Failures, failure{Phase: string(f.Phase), Entity: f.Entity, Error: f.Err.Error()})
	}
	return s
}

func verify(ctx context.Context, store *neoframe.Neo4jStore, engine *neoframe.Engine) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, n := range engine.NodeTypes() {
		c, err := store.CountNodes(ctx, n.Label)
		if err != nil {
			return counts, err
		}
		counts[n.Label] = c
	}
	for _, r := range engine.Relationships() {
		start, end, _ := engine.EndpointKeys(r.Key())
		c, err := store.CountRelationships(ctx, r.Name, start, end)
		if err != nil {
			return counts, err
		}
		counts[r.Key().String()] = c
	}
	return counts, nil
}

func printSummary(w io.Writer, s summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "run %s: %s in %s\n", s.RunID, s.State, s.Duration)
	fmt.Fprintf(w, "  %d node types merged, %d relationships merged\n", s.NodeTypesMerged, s.RelationshipsMerged)
	for _, msg := range s.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", msg)
	}
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  failed at phase %s entity %s: %s\n", f.Phase, f.Entity, f.Error)
	}
	for name, n := range s.Verified {
		fmt.Fprintf(w, "  verified %s: %d\n", name, n)
	}
	return nil
}
