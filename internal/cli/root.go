// root.go sets up the Cobra command tree and global flags, following the
// teacher's internal/cli/root.go: persistent flags bound into viper, a
// cobra.OnInitialize hook building the global logger from them.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/danrygg/wovenflow/pkg/logging"
)

var (
	cfgFile             string
	debugMode           bool
	verboseMode         bool
	format              string
	cacheProvider       string
	persistenceProvider string
	sqliteDBURL         string
	postgresDBName      string
	postgresUser        string
	postgresPassword    string
	postgresHostname    string
	noCache             bool
	secretsFile         string

	logger logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "woven",
	Short: "A durable execution engine for Serverless Workflow DSL documents",
	Long: `woven loads, validates, and executes Serverless Workflow DSL (v1.0.x)
documents with event-sourced durability, content-addressed task caching,
and nested/catalog workflow composition.

Examples:
  woven run workflow.yaml --input '{"a":1,"b":2}'
  woven run workflow.yaml --resume 3c9d2e4a-...
  woven validate workflow.yaml`,
	Version: "0.1.0",
}

// Execute adds all child commands and runs the root command. Called once
// from cmd/woven/main.go.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.woven.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verboseMode, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "output format (text, json)")

	rootCmd.PersistentFlags().StringVar(&cacheProvider, "cache-provider", "memory", "cache backend (memory, sqlite, postgres, embedded-kv)")
	rootCmd.PersistentFlags().StringVar(&persistenceProvider, "persistence-provider", "memory", "event/checkpoint backend (memory, sqlite, postgres, embedded-kv)")
	rootCmd.PersistentFlags().StringVar(&sqliteDBURL, "sqlite-db-url", "file:woven.db", "sqlite database URL for --cache-provider/--persistence-provider sqlite")
	rootCmd.PersistentFlags().StringVar(&postgresDBName, "postgres-db-name", "woven", "postgres database name")
	rootCmd.PersistentFlags().StringVar(&postgresUser, "postgres-user", "woven", "postgres user")
	rootCmd.PersistentFlags().StringVar(&postgresPassword, "postgres-password", "", "postgres password")
	rootCmd.PersistentFlags().StringVar(&postgresHostname, "postgres-hostname", "localhost:5432", "postgres host:port")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable the Cache Store entirely")
	rootCmd.PersistentFlags().StringVar(&secretsFile, "secrets-file", "", "YAML/JSON/.env file resolved into $secrets")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".woven")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("WOVEN")

	if err := viper.ReadInConfig(); err == nil && verboseMode {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func initLogger() {
	level := "info"
	if viper.GetBool("debug") {
		level = "debug"
	} else if viper.GetBool("verbose") {
		level = "debug"
	}

	if viper.GetString("format") == "json" {
		logger = logging.NewJSONLogger(level, os.Stderr)
	} else {
		logger = logging.NewConsoleLogger(level, os.Stderr)
	}
}

// GetLogger returns the global logger, initializing it if a subcommand
// needs it before Cobra's OnInitialize hooks have run (e.g. in tests).
func GetLogger() logging.Logger {
	if logger == nil {
		initLogger()
	}
	return logger
}

func engineConfigFromFlags() EngineConfig {
	return EngineConfig{
		CacheProvider:       cacheProvider,
		PersistenceProvider: persistenceProvider,
		SQLiteDBURL:         sqliteDBURL,
		Postgres: PostgresConfig{
			DBName:   postgresDBName,
			User:     postgresUser,
			Password: postgresPassword,
			Hostname: postgresHostname,
		},
		NoCache:     noCache,
		SecretsFile: secretsFile,
		Logger:      GetLogger(),
	}
}
