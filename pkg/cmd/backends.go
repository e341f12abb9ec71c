package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yeisme/filehost/pkg/configs"
	"github.com/yeisme/filehost/pkg/internal/storage/blob"
	"github.com/yeisme/filehost/pkg/internal/storage/db"
	"github.com/yeisme/filehost/pkg/internal/storage/kv"
	"github.com/yeisme/filehost/pkg/internal/storage/mq"
)

// backendList 打印已注册的后端，当前配置选中的一项用 * 标出.
type backendList struct {
	use, short string
	names      func() []string
	active     func(cfg *configs.AppConfig) string
}

func (b backendList) command() *cobra.Command {
	return &cobra.Command{
		Use:     b.use,
		Short:   b.short,
		Aliases: []string{"ls", "l"},
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			var active string
			if err := configs.InitConfig(configPath); err == nil {
				active = b.active(configs.GetConfig())
			}

			writeBackends(cmd.OutOrStdout(), b.names(), active)
		},
	}
}

func writeBackends(w io.Writer, names []string, active string) {
	for _, n := range names {
		mark := " "
		if n == active {
			mark = "*"
		}

		fmt.Fprintf(w, " %s %s\n", mark, n)
	}
}

func strs[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}

	return out
}

var (
	storageCmd = &cobra.Command{Use: "storage", Short: "Blob storage related commands"}
	kvCmd      = &cobra.Command{Use: "kv", Short: "Record cache store related commands", Aliases: []string{"keyvalue"}}
	mqCmd      = &cobra.Command{Use: "mq", Short: "File event transport related commands", Aliases: []string{"messagequeue"}}

	storageListCmd = backendList{
		use:    "list",
		short:  "list registered blob storage backends",
		names:  func() []string { return strs(blob.GetRegisteredBackends()) },
		active: func(cfg *configs.AppConfig) string { return string(cfg.Storage.Backend) },
	}.command()

	dbListCmd = backendList{
		use:    "list",
		short:  "list registered database dialects",
		names:  func() []string { return strs(db.GetRegisteredDBTypes()) },
		active: func(cfg *configs.AppConfig) string { return string(cfg.DB.Type) },
	}.command()

	kvListCmd = backendList{
		use:    "list",
		short:  "list registered kv stores",
		names:  func() []string { return strs(kv.GetRegisteredKVTypes()) },
		active: func(cfg *configs.AppConfig) string { return cfg.KV.GetKVType() },
	}.command()

	mqListCmd = backendList{
		use:    "list",
		short:  "list registered event transports",
		names:  func() []string { return strs(mq.GetRegisteredMQTypes()) },
		active: func(cfg *configs.AppConfig) string { return string(cfg.MQ.GetMQType()) },
	}.command()
)

func registerBackendCommands() {
	rootCmd.AddCommand(storageCmd, kvCmd, mqCmd)

	storageCmd.AddCommand(storageListCmd)
	kvCmd.AddCommand(kvListCmd)
	mqCmd.AddCommand(mqListCmd)
}
