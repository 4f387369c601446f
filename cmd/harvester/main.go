package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adda-Baaj/arthik-khobor/internal/app"
	"github.com/Adda-Baaj/arthik-khobor/internal/config"
	"github.com/Adda-Baaj/arthik-khobor/internal/logger"
	"github.com/Adda-Baaj/arthik-khobor/pkg/providers"
)

const usage = `usage: harvester <command> [flags]

commands:
  serve                   run the HTTP API and the scheduler
  run -source <id>        run the pipeline for one source and print the result
  run-all [-sources a,b]  run every enabled source, or the given ones, in order
  sources                 list the enabled source ids
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, cfg, log, os.Args[1], os.Args[2:]); err != nil {
		log.ErrorObj("command failed", "command_failed", map[string]any{
			"command": os.Args[1],
			"error":   err.Error(),
		})
		_ = log.Sync()
		stop()
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, cfg config.Config, log logger.Logger, cmd string, args []string) error {
	switch cmd {
	case "serve":
		return withApp(ctx, cfg, log, func(a *app.App) error {
			return a.Serve(ctx)
		})

	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		source := fs.String("source", "", "source id to run")
		_ = fs.Parse(args)
		if strings.TrimSpace(*source) == "" {
			return errors.New("run: -source is required")
		}
		cfg.Scheduler.Enabled = false
		return withApp(ctx, cfg, log, func(a *app.App) error {
			res, err := a.Pipeline.Run(ctx, *source)
			if printErr := printJSON(res); printErr != nil {
				return printErr
			}
			return err
		})

	case "run-all":
		fs := flag.NewFlagSet("run-all", flag.ExitOnError)
		list := fs.String("sources", "", "comma separated source ids, default all enabled")
		_ = fs.Parse(args)
		cfg.Scheduler.Enabled = false
		return withApp(ctx, cfg, log, func(a *app.App) error {
			sum, err := a.Pipeline.RunAll(ctx, splitIDs(*list))
			if err != nil {
				log.WarnObj("some sources failed", "run_all_partial", map[string]any{"error": err.Error()})
			}
			return printJSON(sum)
		})

	case "sources":
		catalog, err := providers.LoadProviders(cfg.Sources.File)
		if err != nil {
			return err
		}
		for _, p := range catalog {
			if p.EnabledValue() {
				fmt.Println(p.ID)
			}
		}
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func withApp(ctx context.Context, cfg config.Config, log logger.Logger, fn func(*app.App) error) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.WarnObj("shutdown incomplete", "app_close_failed", map[string]any{"error": err.Error()})
		}
	}()
	return fn(a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitIDs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
