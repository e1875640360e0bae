// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

// Package cli implements the evote-auth command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// configFile is the path to the YAML configuration file. Empty means
	// defaults plus environment overrides.
	configFile string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "evote-auth",
	Short: "Biometric credential service for the election platform",
	Long: `evote-auth runs the biometric registration and authentication
service: it issues single-use challenges, verifies ECDSA P-256
assertions from platform authenticators, and maintains the
credential registry.

Passwords, session tokens, and election management are handled by
other services; this daemon owns only the credential ceremonies.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is built-in defaults plus EVOTE_AUTH_* environment overrides)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
}
