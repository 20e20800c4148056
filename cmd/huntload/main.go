package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/duckhunt/internal/huntload"
	"github.com/okian/duckhunt/pkg/logger"
)

// Default configuration constants.
const (
	defaultCommands    = 10000
	defaultPlayers     = 25
	defaultTopN        = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultReplays     = 50
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		commands = flag.Int("commands", defaultCommands, "Number of commands to generate and submit")
		players  = flag.Int("players", defaultPlayers, "Distinct nicks per channel")
		channels = flag.String("channels", "#ducks", "Comma separated channels; the server must have joined them")
		admin    = flag.String("admin", "op", "Admin nick used for launch and rearm")
		topN     = flag.Int("top", defaultTopN, "Leaderboard rows to verify per channel")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		replays  = flag.Int("replays", defaultReplays, "Replay an earlier command ID every N commands (0 disables)")
		seed     = flag.Uint64("seed", 0, "Plan seed (0 picks one)")
		verbose  = flag.Bool("verbose", false, "Log every rejected or failed command")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	cfg := &huntload.Config{
		BaseURL:  *baseURL,
		Commands: *commands,
		Players:  *players,
		Channels: strings.Split(*channels, ","),
		Admin:    *admin,
		TopN:     *topN,
		Workers:  *workers,
		Timeout:  *timeout,
		Replays:  *replays,
		Seed:     *seed,
		Verbose:  *verbose,
		Logger:   logger.Named("huntload"),
	}

	if _, err := huntload.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
