package commands

import (
	"context"
	"fmt"
	"strings"

	"rim/internal/auth"
	"rim/internal/db"
	"rim/internal/logger"
	"rim/internal/models"
	"rim/internal/permissions"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage API users",
	}
	cmd.AddCommand(newUsersAddCommand())
	return cmd
}

func newUsersAddCommand() *cobra.Command {
	var (
		name        string
		password    string
		centralRole string
		orgRoles    []string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create or replace a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := buildUser(args[0], name, password, centralRole, orgRoles)
			if err != nil {
				return err
			}

			log, closeDB, err := connect()
			if err != nil {
				return err
			}
			defer closeDB()

			users := auth.NewMongoUsers(db.Users, logger.Component(log, "users"))
			saved, err := users.Save(context.Background(), u)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved user %s (%s)\n", saved.Username, saved.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password (required)")
	cmd.Flags().StringVar(&centralRole, "central-role", "", "admin or reader")
	cmd.Flags().StringSliceVar(&orgRoles, "org", nil, "organization role as <organizationID>=<admin|member>, repeatable")
	return cmd
}

func buildUser(username, name, password, centralRole string, orgRoles []string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.User{}, fmt.Errorf("username and password are required")
	}

	switch centralRole {
	case "", permissions.CentralAdmin, permissions.CentralReader:
	default:
		return models.User{}, fmt.Errorf("unknown central role %q", centralRole)
	}

	roles := map[string]string{}
	for _, raw := range orgRoles {
		org, role, ok := strings.Cut(raw, "=")
		if !ok || org == "" {
			return models.User{}, fmt.Errorf("organization role %q is not <organizationID>=<role>", raw)
		}
		if role != permissions.OrganizationAdmin && role != permissions.OrganizationMember {
			return models.User{}, fmt.Errorf("unknown organization role %q", role)
		}
		roles[org] = role
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	if name == "" {
		name = username
	}

	return models.User{
		Username:          username,
		Password:          string(hash),
		Name:              name,
		CentralRole:       centralRole,
		OrganizationRoles: roles,
	}, nil
}
