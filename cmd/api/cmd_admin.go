package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ioezgamer/studio/internal/rbac"
	"github.com/ioezgamer/studio/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd applies pending migrations and exits.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd.Context())
		if err != nil {
			return err
		}
		return db.Close()
	},
}

var roleCmd = &cobra.Command{
	Use:   "role",
	Short: "Manage user roles",
	Long: `Roles are assigned out of band by an operator.

Available subcommands:
  set - Assign admin, editor or viewer to a user id`,
}

var roleSetCmd = &cobra.Command{
	Use:   "set <user-id> <role>",
	Short: "Assign a role to a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRole(cmd.Context(), strings.TrimSpace(args[0]), strings.TrimSpace(args[1]))
	},
}

func setRole(ctx context.Context, userID, role string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	parsed, err := rbac.Parse(role)
	if err != nil {
		return err
	}
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.NewPostgresStore(db).SetRole(ctx, userID, string(parsed)); err != nil {
		return err
	}
	logger.Info("role assigned", zap.String("user_id", userID), zap.String("role", string(parsed)))
	return nil
}
