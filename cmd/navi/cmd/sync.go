package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var syncAll bool

var syncCmd = &cobra.Command{
	Use:   "sync [channel-id...]",
	Short: "Backfill the links of channels from their full history",
	Long: `Read the full history of each channel, rebuild its link record and
summary from scratch, and publish the summary.

With --all every unarchived channel with enough members is synchronized.

Examples:
  navi sync C024BE91L
  navi sync --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncAll == (len(args) > 0) {
			return errors.New("pass channel IDs or --all")
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close(log)

		if syncAll {
			results, err := a.service.SynchronizeAll(ctx)
			for _, r := range results {
				fmt.Printf("%s\t%s\t%d links\t%s\n", r.Channel.ID, r.Channel.Name, r.Store.Len(), r.Location)
			}
			return err
		}

		var errs []error
		for _, id := range args {
			r, err := a.service.Synchronize(ctx, id)
			if err != nil {
				errs = append(errs, fmt.Errorf("channel %s: %w", id, err))
				continue
			}
			fmt.Printf("%s\t%s\t%d links\t%s\n", r.Channel.ID, r.Channel.Name, r.Store.Len(), r.Location)
		}
		return errors.Join(errs...)
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "synchronize every eligible channel")
	rootCmd.AddCommand(syncCmd)
}
