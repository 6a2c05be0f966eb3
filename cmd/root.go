package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/admit/internal/analyzer"
	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/logging"
	"github.com/joescharf/admit/internal/output"
	"github.com/joescharf/admit/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "admit",
	Short: "Admissibility review - reconcile analyzer findings with reviewer decisions",
	Long: `admit runs the initial admissibility review of complaint documents.
An analyzer proposes a finding per criterion, a reviewer confirms, edits or
overrides it, and the final decision is saved per criterion.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/admit/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "admit")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ADMIT")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers the default value of every config key.
func setDefaults() {
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "admit")

	viper.SetDefault("state_dir", defaultConfigDir)
	viper.SetDefault("db_path", filepath.Join(defaultConfigDir, "admit.db"))
	viper.SetDefault("text_dir", filepath.Join(defaultConfigDir, "text"))
	viper.SetDefault("port", 8080)
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("metrics.enabled", true)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	level := viper.GetString("log.level")
	if verbose {
		level = "debug"
	}
	if err := logging.Setup(level, viper.GetString("log.format"), os.Stderr); err != nil {
		ui.Warning("Invalid logging config: %v", err)
	}

	// Store opens lazily, only for commands that need it.
	// This allows config/version commands to run without a db.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Debug().Str("db_path", dbPath).Msg("database opened")
	dataStore = s
	return dataStore, nil
}

// newAnalyzer returns the configured analyzer, or nil when no API key is set.
func newAnalyzer(reg *criteria.Registry) analyzer.Analyzer {
	key := viper.GetString("anthropic.api_key")
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key == "" {
		return nil
	}
	return analyzer.NewClient(key, viper.GetString("anthropic.model"), reg)
}

func textSource() analyzer.FileTextSource {
	return analyzer.FileTextSource{Dir: viper.GetString("text_dir")}
}
