package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"quotamon/internal/auth"
	"quotamon/internal/config"
	"quotamon/internal/history"
)

const version = "0.1.0"

var (
	// Global flags
	verbose     bool
	apiModeFlag bool

	// Logger for the non-TUI subcommands
	logger *zap.Logger
)

// rootCmd launches the dashboard when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "quotamon",
	Short: "quotamon - Claude usage quota monitor",
	Long: `quotamon is a terminal dashboard for Claude usage quotas.

It reads your Claude Code OAuth credentials, polls the usage API, and
renders 5-hour and 7-day quota gauges with reset countdowns. With an
Admin API key configured it can also show organization-wide token usage
and costs (press 'm' in the dashboard).

Run without arguments to start the dashboard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The dashboard owns the terminal; zap would scribble over it.
		if cmd.Use == "quotamon" && cmd.CalledAs() == "quotamon" {
			return nil
		}

		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard(apiModeFlag)
	},
}

// setupCmd walks through authentication.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure OAuth credentials or an Admin API key",
	Long: `Interactive authentication setup.

Without flags, looks for Claude Code credentials (macOS Keychain, then
~/.claude/.credentials.json) and falls back to a manually pasted OAuth
token. With --api, prompts for an Anthropic Admin API key instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if apiModeFlag {
			return auth.RunAdminSetup(os.Stdin, os.Stdout)
		}
		return auth.RunSetup(os.Stdin, os.Stdout)
	},
}

// configCmd groups config get/set/path.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit quotamon configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		value, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets a configuration key and writes config.toml.

Keys:
  plan_type        pro or max
  refresh_interval seconds between API polls
  admin_api_key    Anthropic Admin API key
  debug_mode       true/false, enables file logging`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		logger.Info("config updated", zap.String("key", args[0]))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.Path())
	},
}

var (
	historyLimit     int
	historyPruneDays int
)

// historyCmd lists or prunes recorded snapshots.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded quota snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(historyPath())
		if err != nil {
			return err
		}
		defer store.Close()

		if historyPruneDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -historyPruneDays)
			removed, err := store.Prune(cutoff)
			if err != nil {
				return err
			}
			logger.Info("pruned history", zap.Int64("removed", removed))
			fmt.Printf("Removed %d snapshots older than %d days.\n", removed, historyPruneDays)
			return nil
		}

		entries, err := store.Recent(historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No snapshots recorded yet. Run the dashboard first.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  5h %3.0f%%  7d %3.0f%%  %s\n",
				e.TakenAt.Local().Format("2006-01-02 15:04"),
				e.FiveHourPct, e.SevenDayPct, e.PlanType)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the quotamon version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("quotamon %s\n", version)
	},
}

func historyPath() string {
	return filepath.Join(config.Dir(), "history.db")
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.Flags().BoolVar(&apiModeFlag, "api", false, "Start in Admin API usage mode")
	setupCmd.Flags().BoolVar(&apiModeFlag, "api", false, "Configure an Admin API key only")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of snapshots to show")
	historyCmd.Flags().IntVar(&historyPruneDays, "prune", 0, "Delete snapshots older than N days")

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
