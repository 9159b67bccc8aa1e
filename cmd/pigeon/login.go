package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/pigeonchat/pigeon/internal/backend"
	"github.com/pigeonchat/pigeon/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the server and cache the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := resolveProfile()
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Username: ")
		username, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		username = strings.TrimSpace(username)

		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		client := backend.NewClient(cfg.ServerURL)
		token, err := client.Login(ctx, username, string(password))
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		if err := session.SaveToken(profile, token); err != nil {
			return fmt.Errorf("cache token: %w", err)
		}

		fmt.Printf("Logged in as %s (profile %s)\n", username, profile)
		return nil
	},
}
