// Command thesisadmin runs operator tasks against the thesisai database.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	mongoURI string
	database string
	timeout  time.Duration
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "thesisadmin",
	Short: "Operator tasks for the thesisai backend",
	Long: `thesisadmin shares the server's stores to run maintenance from a shell.

Connection settings default to THESISAI_MONGO_URI and THESISAI_MONGO_DATABASE.`,
	SilenceUsage: true,
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", envOr("THESISAI_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&database, "db", envOr("THESISAI_MONGO_DATABASE", "thesisai"), "MongoDB database name")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(ensureIndexesCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(purgeCmd)
	whitelistCmd.AddCommand(whitelistAddCmd)
	rootCmd.AddCommand(whitelistCmd)
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// withDB connects, runs fn, and disconnects.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping %s: %w", mongoURI, err)
	}
	return fn(ctx, client.Database(database), logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
