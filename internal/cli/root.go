// Package cli provides the command-line interface for aviary.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aviary-sim/aviary/internal/client"
	"github.com/aviary-sim/aviary/internal/config"
	"github.com/aviary-sim/aviary/internal/world"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logger and world API client
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	api        *client.Client

	// Lazy-initialized world store
	store *world.Store
)

// Theme holds the color scheme for CLI output.
type Theme struct {
	Heading lipgloss.Color
	Accent  lipgloss.Color
	Hint    lipgloss.Color
	Error   lipgloss.Color
}

var defaultTheme = Theme{
	Heading: lipgloss.Color("#5FAFD7"), // light blue
	Accent:  lipgloss.Color("#00D787"), // green
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
	Error:   lipgloss.Color("#FF005F"), // red
}

func (t Theme) headingStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Heading).Bold(true)
}

func (t Theme) accentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "aviary",
	Short: "Multi-avatar chat world simulation daemon",
	Long: `Aviary animates a roster of AI avatars living in a shared chat world.
Each avatar watches its remembered locations, decides whether to speak,
wanders, picks things up, and replies in its own voice.

The daemon polls the world API on a fixed cadence; inspection commands
show the current state of the roster and the world.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		api = client.New(cfg.APIBase, client.DefaultTimeout)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			if err := store.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close world store: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// getStore connects to the world store on first use.
func getStore(ctx context.Context) (*world.Store, error) {
	if store != nil {
		return store, nil
	}

	var err error
	store, err = world.NewStore(ctx, world.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to world store: %w", err)
	}
	if err := store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(avatarsCmd)
	rootCmd.AddCommand(locationsCmd)
	rootCmd.AddCommand(itemsCmd)
}
