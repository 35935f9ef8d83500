package cmd

import (
	"os"
	"os/signal"

	"github.com/koscakluka/foundry-core/internal/console"
	"github.com/spf13/cobra"
)

const consoleCommandName = "console"

var consoleCmd = &cobra.Command{
	Use:   consoleCommandName,
	Short: "Open the interactive operator console",
	Long: `Open the interactive operator console. Logs are discarded while the
console owns the terminal unless --log-file is set.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		ctrl, err := newController(ctx)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		ctrl.Start(ctx)
		return console.Run(ctx, ctrl)
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
