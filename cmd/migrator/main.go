package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vestforge/escrow-migrator/internal/config"
	"github.com/vestforge/escrow-migrator/internal/connection"
	"github.com/vestforge/escrow-migrator/internal/journal"
	"github.com/vestforge/escrow-migrator/internal/ledger"
	"github.com/vestforge/escrow-migrator/internal/metrics"
	"github.com/vestforge/escrow-migrator/internal/migration"
	"github.com/vestforge/escrow-migrator/internal/server"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application wires together the components of one migrator process
type Application struct {
	config         *config.Config
	connection     *connection.ConnectionManager
	journal        journal.Journal
	metricsManager *metrics.Manager
	statusServer   *server.StatusServer
	runner         *migration.Runner
}

// NewApplication builds the application from configuration
func NewApplication(cfg *config.Config) (*Application, error) {
	if err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &Application{config: cfg}

	app.connection = connection.NewConnectionManager(&cfg.Chain)

	source, err := ledger.NewEthSourceLedger(
		app.connection,
		common.HexToAddress(cfg.Contracts.SourceAddress),
		cfg.Contracts.SourceStartBlock,
		cfg.Migration.MaxBlockRange,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create source ledger: %w", err)
	}

	target, err := ledger.NewEthTargetLedger(
		app.connection,
		common.HexToAddress(cfg.Contracts.TargetAddress),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create target ledger: %w", err)
	}

	if cfg.Journal.Enabled {
		j, err := journal.NewJournal(&cfg.Journal)
		if err != nil {
			return nil, fmt.Errorf("failed to create journal: %w", err)
		}
		if err := j.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect journal: %w", err)
		}
		if err := j.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate journal: %w", err)
		}
		app.journal = j
	}

	app.metricsManager = metrics.NewManager()

	app.runner = migration.NewRunner(source, target, migration.Options{
		DryRun:          cfg.Migration.DryRun,
		BalancePageSize: cfg.Migration.BalancePageSize,
		ImportPageSize:  cfg.Migration.ImportPageSize,
		EventName:       cfg.Migration.EventName,
	})
	app.runner.SetJournal(app.journal)
	app.runner.SetMetricsManager(app.metricsManager)

	if cfg.Server.Enabled {
		app.statusServer = server.NewStatusServer(&cfg.Server, app.journal, app.connection)
	}

	return app, nil
}

// Run performs one migration run and prints the summary
func (app *Application) Run(ctx context.Context) error {
	if app.statusServer != nil {
		if err := app.statusServer.Start(); err != nil {
			return fmt.Errorf("failed to start status server: %w", err)
		}
		defer app.statusServer.Stop()
	}

	if err := app.connection.HealthCheck(ctx); err != nil {
		return err
	}

	summary, err := app.runner.Run(ctx)
	if err != nil {
		return err
	}

	out, marshalErr := json.MarshalIndent(summary, "", "  ")
	if marshalErr != nil {
		return marshalErr
	}
	fmt.Println(string(out))

	return nil
}

// Close releases application resources
func (app *Application) Close() {
	if app.journal != nil {
		if err := app.journal.Close(); err != nil {
			utils.GetLogger().WithError(err).Error("Failed to close journal")
		}
	}
	if app.connection != nil {
		if err := app.connection.Close(); err != nil {
			utils.GetLogger().WithError(err).Error("Failed to close connection")
		}
	}
}

// loadConfig loads configuration and applies CLI flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if viper.IsSet("dry-run") && viper.GetBool("dry-run") {
		cfg.Migration.DryRun = true
	}
	if v := viper.GetInt("balance-page-size"); v > 0 {
		cfg.Migration.BalancePageSize = v
	}
	if v := viper.GetInt("import-page-size"); v > 0 {
		cfg.Migration.ImportPageSize = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// rootCmd runs a migration when called without subcommands
var rootCmd = &cobra.Command{
	Use:     "migrator",
	Short:   "Escrow vesting migration tool",
	Long:    `Migrates per-account escrow balances and vesting schedules from a legacy escrow ledger into its successor, driven by the historical vesting-event log.`,
	Version:       AppVersion,
	RunE:          runMigration,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// runMigration is the main command
func runMigration(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalChan
		fmt.Println("\nReceived shutdown signal, cancelling run...")
		cancel()
	}()

	return app.Run(ctx)
}

// versionCmd prints the version number
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("escrow-migrator %s\n", AppVersion)
	},
}

// configCmd groups configuration management commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Chain node: %s\n", cfg.Chain.NodeURL)
		fmt.Printf("Source contract: %s\n", cfg.Contracts.SourceAddress)
		fmt.Printf("Target contract: %s\n", cfg.Contracts.TargetAddress)
		fmt.Printf("Dry run: %v\n", cfg.Migration.DryRun)

		return nil
	},
}

// testCmd tests connectivity
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connectivity and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.File); err != nil {
			return err
		}

		fmt.Printf("Testing chain connection to %s...\n", cfg.Chain.NodeURL)
		conn := connection.NewConnectionManager(&cfg.Chain)
		defer conn.Close()
		if err := conn.HealthCheck(cmd.Context()); err != nil {
			return fmt.Errorf("chain connection failed: %w", err)
		}
		fmt.Println("✓ Chain connection successful")

		if cfg.Journal.Enabled {
			fmt.Printf("Testing journal connection (%s)...\n", cfg.Journal.Type)
			j, err := journal.NewJournal(&cfg.Journal)
			if err != nil {
				return err
			}
			if err := j.Connect(); err != nil {
				return fmt.Errorf("journal connection failed: %w", err)
			}
			defer j.Close()
			fmt.Println("✓ Journal connection successful")
		}

		fmt.Println("\nAll connectivity tests passed! ✓")
		return nil
	},
}

// historyCmd prints recent runs from the journal
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent migration runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Journal.Enabled {
			return fmt.Errorf("journal is disabled, no history available")
		}

		if err := utils.InitLogger("error", cfg.Logging.Format, "stdout", ""); err != nil {
			return err
		}

		j, err := journal.NewJournal(&cfg.Journal)
		if err != nil {
			return err
		}
		if err := j.Connect(); err != nil {
			return err
		}
		defer j.Close()
		if err := j.Migrate(); err != nil {
			return err
		}

		runs, err := j.GetRuns(cmd.Context(), viper.GetInt("limit"))
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("dry-run", false, "log planned writes without submitting them")
	rootCmd.Flags().Int("balance-page-size", 0, "accounts per balance-migration write")
	rootCmd.Flags().Int("import-page-size", 0, "entries per schedule-import write")
	historyCmd.Flags().Int("limit", 20, "number of runs to show")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("dry-run", rootCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("balance-page-size", rootCmd.Flags().Lookup("balance-page-size"))
	viper.BindPFlag("import-page-size", rootCmd.Flags().Lookup("import-page-size"))
	viper.BindPFlag("limit", historyCmd.Flags().Lookup("limit"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(historyCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point; any unhandled failure prints diagnostics and
// exits non-zero without raising past this boundary
func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
