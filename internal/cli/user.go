// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Zaid-Dildar/evote-auth/internal/config"
	"github.com/Zaid-Dildar/evote-auth/internal/storage/sqlite"
	"github.com/Zaid-Dildar/evote-auth/pkg/biometric"
)

var (
	userID   string
	userName string
)

// userCmd groups account provisioning subcommands.
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage voter accounts in the credential store",
}

// userAddCmd provisions an account so it can begin the registration
// ceremony. Account data beyond the identifier lives with the platform.
var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Provision a voter account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Storage.Backend != "sqlite" {
			return fmt.Errorf("user provisioning requires the sqlite storage backend")
		}

		store, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer store.Close()

		id := userID
		if id == "" {
			id = uuid.NewString()
		}

		if err := store.PutUser(cmd.Context(), &biometric.User{ID: id, Name: userName}); err != nil {
			return fmt.Errorf("failed to store user: %w", err)
		}

		fmt.Printf("user %s provisioned\n", id)
		return nil
	},
}

// userCredentialsCmd lists a voter's registered credentials.
var userCredentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "List a voter's registered credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userID == "" {
			return fmt.Errorf("--id is required")
		}

		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Storage.Backend != "sqlite" {
			return fmt.Errorf("credential listing requires the sqlite storage backend")
		}

		store, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer store.Close()

		creds, err := store.GetByUserID(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to list credentials: %w", err)
		}
		if len(creds) == 0 {
			fmt.Println("no credentials registered")
			return nil
		}
		for _, cred := range creds {
			fmt.Printf("%s\tdevice=%s\tcounter=%d\tregistered=%s\n",
				cred.ID, cred.DeviceID, cred.Counter, cred.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userID, "id", "", "account identifier (generated when omitted)")
	userAddCmd.Flags().StringVar(&userName, "name", "", "display name")
	userCredentialsCmd.Flags().StringVar(&userID, "id", "", "account identifier")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userCredentialsCmd)
}
