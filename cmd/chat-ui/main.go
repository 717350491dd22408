// ABOUTME: Entry point for the chat-ui terminal client
// ABOUTME: Cobra subcommands: register, login, logout, photo, chat

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set by goreleaser at build time.
var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chat-ui",
		Short:         "Terminal client for the chat backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(
		newRegisterCommand(),
		newLoginCommand(),
		newLogoutCommand(),
		newPhotoCommand(),
		newChatCommand(),
	)

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
