package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/UkralStul/localized-view-service/internal/auth"
	"github.com/UkralStul/localized-view-service/internal/config"
	"github.com/UkralStul/localized-view-service/internal/lang"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	logger  *zap.Logger

	storageFlag string
	portFlag    string
	tokenTTL    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "localized-view",
	Short: "Localized view service for posts, comments and chat messages",
	Long: `localized-view serves posts, comments and chat messages in the viewer's
language. Translations are produced on first request by a pluggable
provider (OpenAI, Gemini or dummy) and cached for later views.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if lvl, err := zap.ParseAtomicLevel(os.Getenv("LOG_LEVEL")); err == nil {
			cfg.Level = lvl
		}
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
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "Print supported languages",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(lang.Languages())
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue a development token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		tok, err := auth.NewVerifier(cfg.JWTSecret).IssueToken(args[0], tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	serveCmd.Flags().StringVar(&storageFlag, "storage", "", "Storage type (in-memory or postgres), overrides STORAGE")
	serveCmd.Flags().StringVar(&portFlag, "port", "", "Listen port, overrides PORT")

	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
