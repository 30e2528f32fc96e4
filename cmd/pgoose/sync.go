package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/syssam/pgoose"
	"github.com/syssam/pgoose/compiler/load"
	"github.com/syssam/pgoose/config"
	sqlschema "github.com/syssam/pgoose/dialect/sql/schema"
)

func syncCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		path        = fs.String("config", "", "YAML connection file; PGOOSE_* variables override it")
		concurrency = fs.Int("concurrency", 4, "tables checked in parallel")
		debug       = fs.Bool("debug", false, "log every statement")
	)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	logger := newLogger(stderr, *debug)

	cfg, err := loadConfig(*path)
	if err != nil {
		return err
	}
	cfg.Debug = cfg.Debug || *debug
	schemas, err := load.Load(schemaPaths(fs)...)
	if err != nil {
		return err
	}
	if err := pgoose.Connect(ctx, cfg); err != nil {
		return err
	}
	defer pgoose.Disconnect()

	c := pgoose.NewCollection(
		pgoose.WithSync(pgoose.SyncDisabled),
		pgoose.WithSyncConcurrency(*concurrency),
		pgoose.WithLogger(logger),
	)
	if _, err := load.Define(ctx, c, schemas); err != nil {
		return err
	}
	reports, err := c.SyncAll(ctx)
	for _, r := range reports {
		fmt.Fprintln(stdout, describe(r))
	}
	return err
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	return config.Load(path)
}

func describe(r *sqlschema.Report) string {
	switch {
	case r == nil:
		return "?"
	case r.Created:
		return r.Table + ": created"
	case r.Drift == nil || r.Drift.Empty():
		return r.Table + ": in sync"
	default:
		return r.Drift.String()
	}
}
