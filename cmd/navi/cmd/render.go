package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"navi/internal/domain"
)

var renderCmd = &cobra.Command{
	Use:   "render <channel-id>",
	Short: "Rebuild a channel summary from its stored record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close(log)

		r, err := a.service.Rerender(ctx, args[0])
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("channel %s was never synchronized, run navi sync first", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%d links\t%s\n", r.Channel.ID, r.Channel.Name, r.Store.Len(), r.Location)
		return nil
	},
}

var linkCmd = &cobra.Command{
	Use:   "link <channel-id>",
	Short: "Print where the summary of a channel is published",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close(log)

		location, err := a.service.SummaryLocation(ctx, args[0])
		if err != nil {
			return err
		}
		if location == "" {
			fmt.Println("summary is stored but not published")
			return nil
		}
		fmt.Println(location)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(linkCmd)
}
