package main

import (
	"os"

	"github.com/pigeonchat/pigeon/internal/config"
	"github.com/pigeonchat/pigeon/internal/session"
	"github.com/spf13/cobra"
)

var (
	profileFlag string
	serverFlag  string
)

var rootCmd = &cobra.Command{
	Use:           "pigeon",
	Short:         "Terminal chat client",
	Long:          "Pigeon keeps a local mirror of your conversations in sync with the chat server and renders it in the terminal.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "server base URL (overrides config)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(outboxCmd)
}

// resolveProfile applies flag/config/default precedence and validates
// the result.
func resolveProfile() (string, error) {
	name := session.Resolve(profileFlag)
	if err := session.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// loadConfig reads the global config, falling back to defaults when no
// config file exists yet. The --server flag wins over both.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(session.ConfigPath())
	if os.IsNotExist(err) {
		cfg = config.Default()
	} else if err != nil {
		return nil, err
	}
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}
	return cfg, nil
}
