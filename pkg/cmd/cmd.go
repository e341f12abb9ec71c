// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/filehost/pkg/app"
)

var (
	// configPath 配置文件或配置目录.
	configPath string
	// debug 打印 viper 内部状态.
	debug bool

	rootCmd = &cobra.Command{
		Use:           "filehost",
		Short:         "A minimal self-hosted file hosting service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "run the http service (default)",
		RunE:  runServe,
	}
)

func runServe(cmd *cobra.Command, args []string) error {
	a, err := app.NewApp(configPath)
	if err != nil {
		return err
	}

	return a.Run()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory containing config.{yaml,json,toml,env}")

	rootCmd.AddCommand(serveCmd)

	registerConfigsCommands()
	registerDBCommands()
	registerBackendCommands()
	registerPurgeCommands()
	registerVersionCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
