package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// Config holds all configuration for the migrator
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Migration MigrationConfig `mapstructure:"migration"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ChainConfig contains blockchain connection configuration
type ChainConfig struct {
	NodeURL        string        `mapstructure:"node_url"`
	ChainID        int64         `mapstructure:"chain_id"`
	BackupNodes    []string      `mapstructure:"backup_nodes"`
	PrivateKey     string        `mapstructure:"private_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
}

// ContractsConfig identifies the two escrow ledgers on chain
type ContractsConfig struct {
	SourceAddress    string `mapstructure:"source_address"`
	TargetAddress    string `mapstructure:"target_address"`
	SourceStartBlock uint64 `mapstructure:"source_start_block"`
}

// MigrationConfig contains planner and executor configuration
type MigrationConfig struct {
	DryRun          bool   `mapstructure:"dry_run"`
	BalancePageSize int    `mapstructure:"balance_page_size"`
	ImportPageSize  int    `mapstructure:"import_page_size"`
	EventName       string `mapstructure:"event_name"`
	MaxBlockRange   uint64 `mapstructure:"max_block_range"`
}

// JournalConfig contains run-journal database configuration
type JournalConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Type             string        `mapstructure:"type"` // sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
}

// ServerConfig contains status HTTP server configuration
type ServerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./internal/config")
	}

	viper.SetEnvPrefix("ESCROW_MIGRATOR")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Secrets and endpoints may arrive via plain environment variables
	if nodeURL := os.Getenv("CHAIN_NODE_URL"); nodeURL != "" {
		config.Chain.NodeURL = nodeURL
	}
	if key := os.Getenv("MIGRATOR_PRIVATE_KEY"); key != "" {
		config.Chain.PrivateKey = key
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Journal.ConnectionString = dbURL
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.name", "escrow-migrator")
	viper.SetDefault("app.environment", "development")

	viper.SetDefault("chain.node_url", "http://localhost:8545")
	viper.SetDefault("chain.chain_id", 1)
	viper.SetDefault("chain.request_timeout", "30s")
	viper.SetDefault("chain.retry_attempts", 3)
	viper.SetDefault("chain.retry_delay", "5s")

	viper.SetDefault("migration.dry_run", false)
	viper.SetDefault("migration.balance_page_size", 50)
	viper.SetDefault("migration.import_page_size", 25)
	viper.SetDefault("migration.event_name", "VestingEntryCreated")
	viper.SetDefault("migration.max_block_range", 5000)

	viper.SetDefault("journal.enabled", true)
	viper.SetDefault("journal.type", "sqlite")
	viper.SetDefault("journal.connection_string", "./data/migration.db")
	viper.SetDefault("journal.max_connections", 10)
	viper.SetDefault("journal.max_idle_time", "15m")

	viper.SetDefault("server.enabled", false)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8081)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Chain.NodeURL == "" {
		return fmt.Errorf("chain node URL is required")
	}
	if !utils.IsValidAddress(c.Contracts.SourceAddress) {
		return fmt.Errorf("source contract address %q is not a valid address", c.Contracts.SourceAddress)
	}
	if !utils.IsValidAddress(c.Contracts.TargetAddress) {
		return fmt.Errorf("target contract address %q is not a valid address", c.Contracts.TargetAddress)
	}
	if c.Migration.BalancePageSize <= 0 {
		return fmt.Errorf("balance page size must be positive")
	}
	if c.Migration.ImportPageSize <= 0 {
		return fmt.Errorf("import page size must be positive")
	}
	if c.Migration.EventName == "" {
		return fmt.Errorf("migration event name is required")
	}
	if !c.Migration.DryRun && c.Chain.PrivateKey == "" {
		return fmt.Errorf("a signing key is required unless running with dry_run")
	}
	if c.Journal.Enabled && c.Journal.ConnectionString == "" {
		return fmt.Errorf("journal connection string is required when the journal is enabled")
	}
	return nil
}
