/*
Advent is an advent calendar of 24 boxes. Opening a box draws a few randomly generated
snowflakes on its surface. The calendar is served as a web page whose state lives on the
server and is pushed to the page over a websocket, or shown in the terminal with -tui.
Nothing is persisted: every page load starts a fresh, closed calendar.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"advent/calendar"
	"advent/config"
	appLog "advent/log"
	"advent/server"
	"advent/server/session"
	"advent/snowflake"
	"advent/tui"
)

var (
	configPath = flag.String("config", "./config.yaml", "path to the config file")
	host       = flag.String("host", "", "the host ip, overrides the config")
	port       = flag.String("port", "", "the host port, overrides the config")
	dbg        = flag.Bool("debug", false, "debug logging")
	useTUI     = flag.Bool("tui", false, "show the calendar in the terminal instead of serving it")
)

// randSource returns the constructor of each session's random source. A non-zero seed
// gives every session the same, repeatable sequence.
func randSource(seed int64) func() snowflake.Rand {
	return func() snowflake.Rand {
		if seed != 0 {
			return rand.New(rand.NewSource(seed))
		}
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.FromYaml(*configPath)
	if err != nil {
		return nil, err
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbg {
		cfg.LogLevel = "debug"
	}

	level, err := appLog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	appLog.SetLevel(level)
	return cfg, nil
}

func runApp(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	newRand := randSource(cfg.Seed)

	if *useTUI {
		// Log lines would tear the terminal's screen.
		appLog.SetOutput(io.Discard)
		var opts []calendar.ClickOption
		if cfg.Session.RequireDraw {
			opts = append(opts, calendar.RequireDraw())
		}
		return tui.Run(ctx, newRand(), opts...)
	}

	idle, err := cfg.IdleTimeout()
	if err != nil {
		return err
	}
	registry := session.NewRegistry(ctx, session.Options{RequireDraw: cfg.Session.RequireDraw}, newRand)
	defer registry.Close()

	stop, err := registry.StartSweeper(cfg.Session.SweepSchedule, idle)
	if err != nil {
		return err
	}
	defer stop()

	return server.NewServer(cfg.Addr(), registry).Serve(ctx)
}

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runApp(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
