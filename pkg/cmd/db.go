package cmd

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/yeisme/filehost/pkg/app"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or upgrade the files table",
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

			n, err := svcs.Records.Count(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database, %d records\n", cfg.DB.Type, n)

			return nil
		},
	}
)

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}
