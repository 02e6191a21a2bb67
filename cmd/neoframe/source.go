package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/saulfrancisco-ruizacevedo/go-neoframe"
	csvsource "github.com/saulfrancisco-ruizacevedo/go-neoframe/sources/csv"
	"github.com/saulfrancisco-ruizacevedo/go-neoframe/sources/postgres"
	"github.com/saulfrancisco-ruizacevedo/go-neoframe/sources/sqlite"
)

// Source selection errors.
var (
	ErrNoSource        = errors.New("no source given (use --csv, --postgres or --sqlite)")
	ErrManySources     = errors.New("only one of --csv, --postgres and --sqlite may be given")
	ErrNoQuery         = errors.New("--query is required for SQL sources")
	ErrNoConfig        = errors.New("no mapping found (use --config or a .neoframe.yaml)")
	ErrBadDelimiter    = errors.New("--delimiter must be a single character")
	ErrNoConnectionURI = errors.New("no connection URI specified (use --uri or neo4j.uri in the config)")
)

// sourceFlags are shared by every command that reads a table.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "csv",
			Usage: "read the table from a CSV file",
		},
		&cli.StringFlag{
			Name:  "delimiter",
			Usage: "CSV field delimiter",
			Value: ",",
		},
		&cli.BoolFlag{
			Name:  "infer-types",
			Usage: "parse numeric and boolean CSV cells",
			Value: true,
		},
		&cli.StringFlag{
			Name:    "postgres",
			Usage:   "read the table from a Postgres query (connection string)",
			Sources: cli.EnvVars("NEOFRAME_POSTGRES_DSN"),
		},
		&cli.StringFlag{
			Name:  "sqlite",
			Usage: "read the table from a SQLite query (DSN)",
		},
		&cli.StringFlag{
			Name:  "query",
			Usage: "SQL query producing the table",
		},
	}
}

// engineFlags configure projection and are shared by load and plan.
func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "no-constraints",
			Usage: "skip the uniqueness constraint phase",
		},
		&cli.StringFlag{
			Name:  "on-redeclare",
			Usage: "what to do when the mapping declares a label twice: replace or error",
		},
	}
}

// openTable reads the table selected by the source flags.
func openTable(ctx context.Context, cmd *cli.Command) (neoframe.Table, error) {
	csvPath, pgDSN, sqliteDSN := cmd.String("csv"), cmd.String("postgres"), cmd.String("sqlite")

	given := 0
	for _, s := range []string{csvPath, pgDSN, sqliteDSN} {
		if s != "" {
			given++
		}
	}
	switch {
	case given == 0:
		return nil, ErrNoSource
	case given > 1:
		return nil, ErrManySources
	}

	if csvPath != "" {
		delim := []rune(cmd.String("delimiter"))
		if len(delim) != 1 {
			return nil, ErrBadDelimiter
		}
		return csvsource.ReadFile(csvPath, csvsource.Options{
			Comma:      delim[0],
			InferTypes: cmd.Bool("infer-types"),
			TrimSpace:  true,
		})
	}

	query := cmd.String("query")
	if query == "" {
		return nil, ErrNoQuery
	}
	if pgDSN != "" {
		return postgres.LoadDSN(ctx, pgDSN, query)
	}
	return sqlite.LoadDSN(ctx, sqliteDSN, query)
}

// loadConfig reads --config or the nearest .neoframe.yaml from the working
// directory.
func loadConfig(cmd *cli.Command) (*neoframe.Config, error) {
	if path := cmd.String("config"); path != "" {
		cfg, err := neoframe.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		return cfg, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := neoframe.LoadConfig(wd)
	if errors.Is(err, neoframe.ErrConfigNotFound) {
		return nil, ErrNoConfig
	}
	return cfg, err
}

// engineOptions merges config settings with command-line overrides.
func engineOptions(cmd *cli.Command, cfg *neoframe.Config) ([]neoframe.Option, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	if cmd.Bool("no-constraints") {
		opts = append(opts, neoframe.WithConstraints(false))
	}
	if policy := cmd.String("on-redeclare"); policy != "" {
		p, err := neoframe.ParseRedeclarePolicy(policy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, neoframe.WithRedeclarePolicy(p))
	}
	return opts, nil
}
