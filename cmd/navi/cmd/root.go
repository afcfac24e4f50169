package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"navi/internal/config"
)

var (
	configDir string
	cfg       config.Config
	log       *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "navi",
	Short: "Collects the links shared in Slack channels",
	Long: `navi reads the history of Slack channels, sorts every shared link into
topical sections and keeps a markdown summary per channel up to date.

It can backfill channels on demand (sync), rebuild summaries (render),
print where a summary is published (link) or run as a bot that answers
commands and records new links as they are posted (listen).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.LoadConfig(configDir)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		log = newLogger(cfg.LogLevel)
		log.WithFields(logrus.Fields{
			"storage_backend": cfg.StorageBackend,
			"lock_backend":    cfg.LockBackend,
			"publish_backend": cfg.PublishBackend,
			"title_backend":   cfg.TitleBackend,
		}).Info("Configuration loaded successfully")
		return nil
	},
}

// Execute runs the root command until ctx is cancelled.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", "./configs", "directory holding config.yaml")
}

func newLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(os.Stdout)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		l.WithField("log_level", level).Warn("Unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
