package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mmcdole/vkaudio/internal/config"
	"github.com/mmcdole/vkaudio/internal/domain"
	"github.com/mmcdole/vkaudio/internal/log"
	"github.com/mmcdole/vkaudio/internal/player"
	"github.com/mmcdole/vkaudio/internal/search"
	"github.com/mmcdole/vkaudio/internal/service"
	"github.com/mmcdole/vkaudio/internal/store"
	"github.com/mmcdole/vkaudio/internal/tui"
	"github.com/mmcdole/vkaudio/internal/tui/styles"
	"github.com/mmcdole/vkaudio/internal/vk"
)

// Version is set at build time via -ldflags
var Version = "dev"

// errBadToken is shown when the catalog refuses the configured token
var errBadToken = errors.New("Incorrect vk-token. Reconfigure")

// app holds everything a subcommand needs, built once per invocation
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	client  *vk.Client
	library *store.LibraryStore
	catalog *service.CatalogService
	search  *search.Service
	player  *player.Launcher
}

var current *app

var rootCmd = &cobra.Command{
	Use:           "vkaudio",
	Short:         "Search the VK audio catalog and import tracks into a local library",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current == nil {
			return nil
		}
		current.logger.Info("shutting down")
		return current.library.Close()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.AddCommand(searchCmd, audiosCmd, checkCmd, loginCmd, listCmd, playCmd, clearCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, styles.ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting vkaudio", "version", Version)

	library, err := store.NewLibraryStore(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	client := vk.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout, logger)
	client.SetRateLimit(cfg.Remote.RateLimit)
	viewer := player.NewLauncher(cfg.Viewer.Command, nil, logger)
	solver := tui.NewSolver(os.Stdin, os.Stdout, viewer, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		library: library,
		catalog: service.NewCatalogService(client, solver, cfg.Challenge.MaxAttempts, library, logger),
		search:  search.NewService(logger),
		player:  player.NewLauncher(cfg.Player.Command, cfg.Player.Args, logger),
	}, nil
}

// requireToken refuses to continue without a working token
func (a *app) requireToken(ctx context.Context) error {
	if !a.cfg.IsConfigured() {
		return errBadToken
	}

	ok, err := a.catalog.CheckToken(ctx, a.cfg.Auth.Token)
	if err != nil {
		if errors.Is(err, domain.ErrRemoteUnavailable) || errors.Is(err, context.Canceled) {
			return err
		}
		a.logger.Warn("token check failed", "error", err)
		return errBadToken
	}
	if !ok {
		return errBadToken
	}
	return nil
}
