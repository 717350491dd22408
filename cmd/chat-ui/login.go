// ABOUTME: login, logout and register subcommands
// ABOUTME: Exchanges credentials for a bearer token stored in the token file

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hariharan-cs21/chat-ui/internal/api"
	"github.com/hariharan-cs21/chat-ui/internal/auth"
	"github.com/hariharan-cs21/chat-ui/internal/config"
)

func newLoginCommand() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Path())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := setupLogger(cfg.Logging)

			if email == "" {
				email = prompt("Email: ")
			}
			if password == "" {
				password = prompt("Password: ")
			}

			client := api.New(cfg.Server.APIBaseURL, "", logger)
			res, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			if err := auth.SaveToken(res.Token); err != nil {
				return err
			}

			color.Green("Logged in as %s <%s>", res.User.Username, res.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.ClearToken(); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func newRegisterCommand() *cobra.Command {
	var username, email, password, photo string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store the bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Path())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := setupLogger(cfg.Logging)

			if username == "" {
				username = prompt("Username: ")
			}
			if email == "" {
				email = prompt("Email: ")
			}
			if password == "" {
				password = prompt("Password: ")
			}

			client := api.New(cfg.Server.APIBaseURL, "", logger)
			res, err := client.Register(cmd.Context(), username, email, password, photo)
			if err != nil {
				return err
			}

			if err := auth.SaveToken(res.Token); err != nil {
				return err
			}

			color.Green("Registered as %s <%s>", res.User.Username, res.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&photo, "photo", "", "profile photo file (optional)")
	return cmd
}

func newPhotoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "photo <file>",
		Short: "Upload a new profile photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Path())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := setupLogger(cfg.Logging)

			token, err := auth.LoadToken()
			if err != nil {
				return fmt.Errorf("not logged in: %w", err)
			}

			client := api.New(cfg.Server.APIBaseURL, token, logger)
			ref, err := client.UpdateProfilePhoto(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			color.Green("Profile photo updated: %s", ref)
			return nil
		},
	}
}

func prompt(label string) string {
	fmt.Print(label)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}
