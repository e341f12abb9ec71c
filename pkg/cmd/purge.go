package cmd

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/yeisme/filehost/pkg/app"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "delete expired files once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.Init(configPath)
		if err != nil {
			return err
		}

		ctx := context.Background()

		manager, svcs, err := app.OpenServices(ctx, cfg, clockwork.NewRealClock())
		if err != nil {
			return err
		}
		defer manager.Close()

		n, err := svcs.Reaper.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("purge: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired files\n", n)

		return nil
	},
}

func registerPurgeCommands() {
	rootCmd.AddCommand(purgeCmd)
}
