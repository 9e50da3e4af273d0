// Package cli holds the flag and config plumbing shared by the translator
// binaries.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/llm-translator-go/internal/config"
	"github.com/llm-translator-go/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Session is the state shared by every subcommand once flags are parsed.
type Session struct {
	ConfigPath string
	EnvFile    string

	Loader *config.Loader
	Config *config.Config
	Logger *logrus.Logger
}

// BindFlags registers --config and --env on cmd and its children.
func (s *Session) BindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&s.ConfigPath, "config", "c", "configs/config.yaml", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&s.EnvFile, "env", ".env", "Path to .env file")
}

// Load reads .env, the config file and builds the logger. With quiet set,
// stdout logging is moved to stderr so command output stays clean.
func (s *Session) Load(quiet bool) error {
	if err := godotenv.Load(s.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", s.EnvFile, err)
	}

	s.Loader = config.NewLoader(s.ConfigPath)
	cfg, err := s.Loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if quiet && cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	s.Config, s.Logger = cfg, log
	return nil
}
