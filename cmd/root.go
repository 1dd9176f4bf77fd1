package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/abhisek/brainbrew/internal/config"
	"github.com/abhisek/brainbrew/internal/logging"
	"github.com/abhisek/brainbrew/internal/store"
	"github.com/spf13/cobra"
)

// Loaded by the root command before any subcommand runs.
var (
	cfg config.Config
	log = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "brainbrew",
	Short: "Socratic study tutor for your own documents",
	Long: "brainbrew reads a document you are studying and quizzes you on it, " +
		"one open question at a time, adapting the difficulty to your answers.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStudy(cmd, studyTarget{})
	},
}

func Execute() error {
	err := rootCmd.Execute()
	log.Sync()
	return err
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config.toml (default $XDG_CONFIG_HOME/brainbrew/config.toml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite path or postgres:// DSN (overrides BRAINBREW_DB)")
	rootCmd.PersistentFlags().String("user", "", "User that owns documents and sessions (overrides BRAINBREW_USER)")

	rootCmd.AddCommand(studyCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads .env, the config file and the environment, then applies
// flag overrides and builds the logger.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("config")
	c, err := config.Load(path, os.Getenv)
	if err != nil {
		return err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		c.Database = p
	}
	if u, _ := cmd.Flags().GetString("user"); u != "" {
		c.User = u
	}
	if err := c.Validate(); err != nil {
		return err
	}

	l, err := logging.New(c.Log.Mode)
	if err != nil {
		return err
	}
	if c.Log.Level != "" {
		l = l.WithLevel(c.Log.Level)
	}
	cfg, log = c, l
	return nil
}

// resolveDBPath returns the configured database (flag, BRAINBREW_DB or the
// config file) or the default XDG path.
func resolveDBPath() (string, error) {
	if p := cfg.Database; p != "" {
		if strings.Contains(p, "://") {
			return p, nil
		}
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

func openStore() (*store.Store, string, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, "", fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, "", fmt.Errorf("open database: %w", err)
	}
	return s, dbPath, nil
}
