package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listenupapp/readup-server/internal/client"
)

// version is overridden at build time.
var version = "dev"

// Global flag values.
var (
	flagConfig string
	flagServer string
	flagToken  string
	flagJSON   bool
)

// api is the client shared by every subcommand, built in PersistentPreRunE.
var api *client.Client

var rootCmd = &cobra.Command{
	Use:           "readup",
	Short:         "ReadUp is a reading tracker",
	Long:          `readup talks to a ReadUp server: browse the catalog, move books between shelves, log reading sessions and look at your statistics.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(flagConfig)
		if err != nil {
			return err
		}

		// Flags win over the config file and environment.
		if cmd.Flags().Changed("server") {
			cfg.Set(cfgKeyServer, flagServer)
		}
		if cmd.Flags().Changed("token") {
			cfg.Set(cfgKeyToken, flagToken)
		}

		token := cfg.GetString(cfgKeyToken)
		if token == "" {
			return errors.New("no token configured: pass --token or set READUP_TOKEN")
		}

		api, err = client.New(cfg.GetString(cfgKeyServer), token)
		if err != nil {
			return fmt.Errorf("create client: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: $XDG_CONFIG_HOME/readup/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "server URL (default: "+defaultServer+")")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "bearer token")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(booksCmd)
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(shelfCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(favoriteCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(watchCmd)
}
