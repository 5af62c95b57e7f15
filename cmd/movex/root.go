// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MoveX Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/movex/movex/internal/config"
	"github.com/movex/movex/internal/xdg"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFile    string
)

// NewRootCmd creates the root command for the movex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "movex",
		Short: "MoveX - ride hailing accounts",
		Long: `MoveX runs the account API for riders and captains and provides a
command-line client for signing up, signing in and checking a session.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/movex/config.yaml)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSignupCmd())
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewHomeCmd())
	cmd.AddCommand(NewLogoutCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration for cmd. flagKeys maps
// the command's flags onto config keys.
func loadConfig(cmd *cobra.Command, flagKeys map[string]string) (*config.Config, error) {
	path, explicit := configFile, configFile != ""
	if !explicit {
		path = xdg.ConfigFile()
	}
	return config.Load(config.LoadOptions{
		File:     path,
		Explicit: explicit,
		EnvFile:  envFile,
		Flags:    cmd.Flags(),
		FlagKeys: flagKeys,
	})
}
