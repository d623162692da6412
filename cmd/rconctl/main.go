package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/rconctl/internal/config"
	"github.com/danmuck/rconctl/internal/console"
	"github.com/danmuck/rconctl/internal/logging"
	"github.com/danmuck/rconctl/internal/observability"
	"github.com/danmuck/rconctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "config file (default $RCONCTL_CONFIG, then ~/.config/rconctl/config.toml)")
	debug := flag.Bool("debug", false, "log protocol traffic and grammar learning")
	flag.Parse()
	os.Exit(run(*configPath, *debug))
}

func run(configFlag string, debug bool) int {
	logging.ConfigureRuntime()

	path, err := config.Path(configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rconctl: %v\n", err)
		return 1
	}
	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rconctl: %v\n", err)
		return 1
	}
	if created {
		log.Info().Str("path", path).Msg("wrote default config")
	}
	if os.Getenv(logging.EnvLogLevel) == "" && cfg.LogLevel != "" {
		logging.SetLevel(cfg.LogLevel)
	}
	if debug {
		logging.SetLevel("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			opts := observability.RouterOptions{
				CorsOrigins:  cfg.MetricsCorsOrigins,
				MetricsToken: cfg.MetricsToken,
			}
			if err := observability.Serve(ctx, cfg.MetricsAddr, opts); err != nil {
				log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics endpoint stopped")
			}
		}()
	}

	password := cfg.Password
	if password == "" {
		pw, ok, err := console.PromptPassword(int(os.Stdin.Fd()), os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rconctl: %v\n", err)
			return 1
		}
		if ok {
			password = pw
		}
	}

	c := console.New(console.Options{
		Config: cfg,
		Out:    os.Stdout,
		Width:  func() int { return console.TerminalWidth(int(os.Stdout.Fd())) },
	})
	defer c.Close()

	if err := c.Open(ctx, password); err != nil {
		if errors.Is(err, protocol.ErrAuthenticationFailed) {
			fmt.Println("Wrong Password")
			return 1
		}
		fmt.Fprintf(os.Stderr, "rconctl: %v\n", err)
		return 1
	}

	if err := c.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println()
			return 0
		}
		fmt.Fprintf(os.Stderr, "rconctl: %v\n", err)
		return 1
	}
	return 0
}
