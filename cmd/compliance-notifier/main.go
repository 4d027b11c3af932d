// Command compliance-notifier runs the compliance notification engine, its
// REST API and the operational tooling around it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nhle/compliance-notifier/internal/model"
)

const usage = `Usage: compliance-notifier [-config path] <command> [flags]

Commands:
  serve             run the scheduler and the HTTP API until interrupted
  tick              run the notification engine once and print the report
  seed [file]       load a JSON5 fixture (the bundled demo when no file is given)
  stats             print dashboard statistics
  export-audit OUT  write notifications and their log to an XLSX workbook
  dashboard         open the terminal dashboard
  token             issue an API bearer token for a user
  set-db-password   store the database password in the system keyring
  clear-db-password remove the database password from the system keyring
  init-config       edit and write the configuration (-defaults skips the prompts)
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "compliance-notifier: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	global := flag.NewFlagSet("compliance-notifier", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := global.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() == 0 {
		return errUsage
	}

	name, rest := global.Arg(0), global.Args()[1:]

	commands := map[string]func(context.Context, string, []string) error{
		"serve":             cmdServe,
		"tick":              cmdTick,
		"seed":              cmdSeed,
		"stats":             cmdStats,
		"export-audit":      cmdExportAudit,
		"dashboard":         cmdDashboard,
		"token":             cmdToken,
		"set-db-password":   cmdSetDBPassword,
		"clear-db-password": cmdClearDBPassword,
		"init-config":       cmdInitConfig,
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		return errUsage
	}
	return cmd(ctx, *configPath, rest)
}
