package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"navi/internal/bot"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run the bot: answer commands and record new links live",
	Long: `Connect to Slack over Socket Mode. Mentions of the bot are answered as
commands (hey, help, links, history); every other message carrying a link in
a synchronized channel is merged into that channel's summary.

Requires SLACK_APP_TOKEN.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.SlackAppToken == "" {
			return errors.New("SLACK_APP_TOKEN is required to listen")
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close(log)

		handler := bot.NewHandler(a.service, a.chat, a.extractor, a.botUserID, log)

		log.Info("navi is running. Press Ctrl+C to exit.")
		err = bot.NewListener(a.chat.API(), handler).Start(ctx)
		log.Info("navi shut down gracefully.")
		return err
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)
}
