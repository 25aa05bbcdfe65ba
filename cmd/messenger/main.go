package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func NewMessengerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "messenger",
		Short:         "Terminal messenger: account, chats and realtime conversations",
		Example:       "messenger login --email ann@example.com --password secret\nmessenger open 42",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newLoginCommand(),
		newRegisterCommand(),
		newVerifyCommand(),
		newChatsCommand(),
		newNewChatCommand(),
		newOpenCommand(),
		newWallpaperCommand(),
		newLogoutCommand(),
	)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewMessengerCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Messenger terminated with error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
