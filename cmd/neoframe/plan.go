package main

import (
	"context"
	"encoding/json"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/saulfrancisco-ruizacevedo/go-neoframe"
)

func planCommand() *cli.Command {
	flags := append(sourceFlags(), engineFlags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:  "json",
		Usage: "print the plan as JSON instead of YAML",
	})

	return &cli.Command{
		Name:   "plan",
		Usage:  "Project the table and print the statements a load would run",
		Flags:  flags,
		Action: runPlan,
	}
}

func runPlan(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	table, err := openTable(ctx, cmd)
	if err != nil {
		return err
	}
	opts, err := engineOptions(cmd, cfg)
	if err != nil {
		return err
	}

	engine := neoframe.New(table, nil, opts...)
	if err := engine.Declare(cfg.Mapping); err != nil {
		return err
	}
	plan := engine.Plan()

	if cmd.Bool("json") {
		enc := json.NewEncoder(output(cmd))
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}
	enc := yaml.NewEncoder(output(cmd))
	defer enc.Close()
	return enc.Encode(plan)
}
