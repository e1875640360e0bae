// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zaid-Dildar/evote-auth/internal/config"
	"github.com/Zaid-Dildar/evote-auth/internal/server"
)

// serveCmd runs the authentication server until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the biometric authentication server",
	Long: `Start the HTTP server hosting the registration and authentication
ceremony endpoints, the health check, and the metrics endpoint.

The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if envConfig := os.Getenv("EVOTE_AUTH_CONFIG"); envConfig != "" && configFile == "" {
			configFile = envConfig
		}

		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		slog.Info("Starting evote-auth server",
			"config", configFile,
			"version", Version)

		srv, err := server.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return srv.Run(server.SetupSignalHandler())
	},
}
