package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goclaw/internal/channels"
	"github.com/nextlevelbuilder/goclaw/internal/config"
)

func channelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Manage notification channels",
	}
	cmd.AddCommand(channelListCmd())
	cmd.AddCommand(channelAddCmd())
	cmd.AddCommand(channelRemoveCmd())
	return cmd
}

func channelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured notification channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store := channels.NewStore(cfg.ChannelsFile)
			if err := store.Load(); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPROVIDER\tNAME\tENABLED")
			for _, c := range store.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", c.ID, c.Provider, c.Name, c.Enabled)
			}
			return tw.Flush()
		},
	}
}

func channelAddCmd() *cobra.Command {
	var name, credentialID string
	cmd := &cobra.Command{
		Use:   "add [id] [provider]",
		Short: "Add or replace a notification channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store := channels.NewStore(cfg.ChannelsFile)
			if err := store.Load(); err != nil {
				return err
			}
			return store.Upsert(channels.Channel{
				ID:           args[0],
				Provider:     args[1],
				Name:         name,
				Enabled:      true,
				CredentialID: credentialID,
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&credentialID, "credential", "", "credential id for the provider's secret")
	return cmd
}

func channelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [id]",
		Short: "Disable a notification channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			store := channels.NewStore(cfg.ChannelsFile)
			if err := store.Load(); err != nil {
				return err
			}
			c, ok := store.Get(args[0])
			if !ok {
				return fmt.Errorf("channel %q not found", args[0])
			}
			c.Enabled = false
			return store.Upsert(c)
		},
	}
}
