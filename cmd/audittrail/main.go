package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/upb/audit-trail/config"
	"github.com/upb/audit-trail/internal/observability"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "audittrail",
	Short:         "Audit trail REST API",
	Long:          "Records who did what to which resource, answers audit queries and generates compliance reports.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// initLogger builds the process logger from the observability settings
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(cfg.Observability.LogLevel, logFormat(cfg))
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// logFormat forces JSON in production. Development falls back to console
// output when no format is set.
func logFormat(cfg *config.Config) string {
	switch {
	case cfg.IsProduction():
		return "json"
	case cfg.IsDevelopment() && cfg.Observability.LogFormat == "":
		return "console"
	}
	return cfg.Observability.LogFormat
}
