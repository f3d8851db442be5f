package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/server/middleware"
)

func newTokenCmd() *cobra.Command {
	var (
		secret string
		team   string
		user   string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(secret) < 32 {
				return errors.New("--secret must be at least 32 characters")
			}
			if !validRole(role) {
				return fmt.Errorf("--role must be one of %v", middleware.Roles())
			}
			teamID, err := parseOrNew(team)
			if err != nil {
				return fmt.Errorf("--team: %w", err)
			}
			userID, err := parseOrNew(user)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}

			tok, err := auth.IssueAccessToken(secret, teamID, userID, role, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&secret, "secret", os.Getenv("TASKBOARD_JWT_SECRET"), "signing secret")
	f.StringVar(&team, "team", "", "team ID (random when empty)")
	f.StringVar(&user, "user", "", "user ID (random when empty)")
	f.StringVar(&role, "role", middleware.RoleMember, "admin, member or viewer")
	f.DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}

func validRole(role string) bool {
	for _, r := range middleware.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

func parseOrNew(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(raw)
}
