package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/syssam/pgoose/compiler/gen"
	"github.com/syssam/pgoose/compiler/load"
)

// debounce is the quiet period after a schema change before regenerating.
const debounce = 100 * time.Millisecond

func genCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		out     = fs.String("out", "", "output directory")
		pkg     = fs.String("package", "", "import path of the generated package")
		header  = fs.String("header", gen.DefaultHeader, "comment at the top of each file")
		workers = fs.Int("workers", 0, "files rendered in parallel (default GOMAXPROCS)")
		watch   = fs.Bool("watch", false, "regenerate when a schema file changes")
	)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *out == "" || *pkg == "" {
		fmt.Fprintln(stderr, "pgoose gen: -out and -package are required")
		fs.Usage()
		return errUsage
	}
	opts := []gen.Option{gen.WithTarget(*out), gen.WithPackage(*pkg), gen.WithHeader(*header)}
	if *workers > 0 {
		opts = append(opts, gen.WithWorkers(*workers))
	}
	cfg, err := gen.NewConfig(opts...)
	if err != nil {
		return err
	}
	paths := schemaPaths(fs)
	generate := func() error {
		schemas, err := load.Load(paths...)
		if err != nil {
			return err
		}
		files, err := gen.Generate(ctx, cfg, schemas...)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(stdout, f)
		}
		return nil
	}
	if err := generate(); err != nil {
		if !*watch {
			return err
		}
		fmt.Fprintf(stderr, "pgoose gen: %v\n", err)
	}
	if !*watch {
		return nil
	}
	return watchSchemas(ctx, paths, newLogger(stderr, false), generate)
}

// watchSchemas calls regenerate after every change of a schema file under
// the given paths, until ctx is done. Failures are logged and watching
// goes on.
func watchSchemas(ctx context.Context, paths []string, logger *slog.Logger, regenerate func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}
	logger.Info("watching schema files", "paths", paths)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isSchemaFile(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("schema file changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		case <-timer.C:
			if err := regenerate(); err != nil {
				logger.Error("generation failed", "error", err)
				continue
			}
			logger.Info("records regenerated")
		}
	}
}

func isSchemaFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		fi, err := os.Stat(name)
		return err != nil || !fi.IsDir()
	}
	return false
}
