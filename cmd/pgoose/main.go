// Command pgoose synchronizes database tables with model schema files and
// generates typed Go records from them.
//
// Usage:
//
//	pgoose sync [-config pgoose.yaml] [-concurrency n] [schema paths...]
//	pgoose gen -out dir -package path [-header text] [-watch] [schema paths...]
//
// Schema paths default to the "schema" directory. Without -config the
// connection is read from the PGOOSE_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// errUsage reports invalid command line arguments. The usage has already
// been printed.
var errUsage = errors.New("pgoose: invalid usage")

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	var (
		err error
		cmd = args[0]
	)
	switch cmd {
	case "sync":
		err = syncCmd(ctx, args[1:], stdout, stderr)
	case "gen":
		err = genCmd(ctx, args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "pgoose: unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "pgoose %s: %v\n", cmd, err)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: pgoose <command> [flags] [schema paths...]

Commands:
  sync   create missing tables and report schema drift
  gen    generate typed Go records

Run "pgoose <command> -h" for the flags of a command.
`)
}

// newLogger returns a text logger writing to w.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseFlags parses the flags of a command. A parse error is reported as
// errUsage.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

func schemaPaths(fs *flag.FlagSet) []string {
	if fs.NArg() == 0 {
		return []string{"schema"}
	}
	return fs.Args()
}
