package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/auth"
	"github.com/pabloeorellana/gptunsta-clean-sub000/internal/config"
)

// tokenCmd signs a staff token with JWT_SECRET. Login lives in another
// service; this is for operators and load tests.
func tokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed staff token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("--user-id must be a UUID: %w", err)
			}

			r := auth.Role(role)
			if r != auth.RoleAdmin && r != auth.RoleProfessional {
				return fmt.Errorf("--role must be %s or %s", auth.RoleAdmin, auth.RoleProfessional)
			}

			token, err := auth.IssueToken(cfg.JWTSecret, auth.Identity{UserID: id, Role: r}, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "user id (the professional id for professionals)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleProfessional), "ADMIN or PROFESSIONAL")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}
