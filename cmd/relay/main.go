package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{Use: "omnic-relay"}
	rootCmd.PersistentFlags().String("admin-addr", "http://127.0.0.1:8090", "base URL of a running admin server")
	rootCmd.PersistentFlags().String("caller", "root", "caller identity sent as X-Relay-Caller")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chainCmd())
	rootCmd.AddCommand(ownerCmd())
	rootCmd.AddCommand(txCmd())
	rootCmd.AddCommand(messageCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(tunablesCmd())

	if err := rootCmd.Execute(); err != nil {
		zap.S().Errorw("command failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger.Sugar()
}
