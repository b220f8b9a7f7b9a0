// Package main provides the handoff CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"handoff/internal/config"
	"handoff/internal/logging"
	"handoff/internal/session"
)

var (
	// Global flags
	verbose    bool
	configPath string
	backendArg string
	sessionArg string

	// Logger
	logger *zap.Logger

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "handoff",
	Short: "handoff - terminal AI assistant with context-aware backend switching",
	Long: `handoff is a terminal assistant that routes your requests to pluggable
LLM backends (local ollama, Claude, Gemini) and carries an optimized
conversation context across backend switches.

When a conversation moves from one backend to another, handoff classifies
the transcript into strategic, implementation, debug and chat segments,
weights them for the target backend, and hands over only what matters.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		workspace, _ := os.Getwd()
		if err := logging.Initialize(workspace); err != nil {
			fmt.Fprintln(os.Stderr, "Warning: file logging disabled:", err)
		}

		path := configPath
		if path == "" {
			path = filepath.Join(workspace, ".handoff", "config.yaml")
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if backendArg != "" {
			cfg.Backends.Default = backendArg
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

// newService builds the wired session service from the loaded config.
func newService() (*session.Service, error) {
	svc, err := session.New(cfg)
	if err != nil {
		return nil, err
	}
	svc.Initialize(sessionArg)
	return svc, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.PersistentFlags().StringVarP(&backendArg, "backend", "b", "", "backend to use (local, claude, gemini)")
	rootCmd.PersistentFlags().StringVarP(&sessionArg, "session", "s", "", "session id to resume")

	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(insightsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
