// README: Operator CLI; runs one workflow against the platform, prints a summary, exits 1 on failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"fleetops/internal/app"
	"fleetops/internal/config"
	"fleetops/internal/logger"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, env *env, args []string) error
}

// env is what every command gets: the opened runtime and where to print.
type env struct {
	cfg config.Config
	rt  *app.Runtime
	out io.Writer
	log *zap.Logger
}

var errUsage = errors.New("usage")

var commands = []command{
	{"verify", "check the platform token", runVerify},
	{"drivers", "list drivers [-details]", runDrivers},
	{"billing", "billing report -from YYYY-MM-DD -to YYYY-MM-DD [-out file.csv]", runBilling},
	{"cancel-window", "revive a driver's rides -driver ID -date D -range HH:MM-HH:MM [-reason R] [-dry-run]", runCancelWindow},
	{"reassign-window", "switch a driver's rides -driver ID -to ID -date D -range HH:MM-HH:MM [-dry-run]", runReassignWindow},
	{"high-price", "assign pending rides -date D -range HH:MM-HH:MM -min 50 -driver ID", runHighPrice},
	{"schedules", "per-driver route statistics -date D", runSchedules},
	{"history", "list archived billing reports [-limit N]", runHistory},
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

func realMain(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 2
	}
	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	log, err := logger.New(cfg.Log.Level, "fleetctl")
	if err != nil {
		fmt.Fprintln(stderr, "logger:", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Open(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer rt.Close()

	if err := cmd.run(ctx, &env{cfg: cfg, rt: rt, out: stdout, log: log}, args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "usage: fleetctl %s\n", cmd.usage)
			return 2
		}
		fmt.Fprintf(stderr, "%s: %v\n", cmd.name, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: fleetctl <command> [flags]")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-16s %s\n", c.name, c.usage)
	}
}
