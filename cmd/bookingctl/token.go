package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/educonnect/service-booking/pkg/auth"
)

// newTokenCmd mints a bearer token for local testing against the API.
func newTokenCmd() *cobra.Command {
	var (
		userID  string
		role    string
		name    string
		contact string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}

			id := uuid.New()
			if userID != "" {
				if id, err = uuid.Parse(userID); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}
			r := auth.Role(role)
			if !r.IsValid() {
				return fmt.Errorf("invalid --role %q", role)
			}

			jwt := auth.NewJWTManager(e.cfg.JWTConfig.Secret, e.cfg.JWTConfig.Issuer, e.cfg.JWTConfig.TokenTTL)
			token, err := jwt.Generate(auth.Claims{UserID: id, Role: r, Name: name, Contact: contact})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleRequester), "provider, requester or admin")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&contact, "contact", "", "contact address")

	return cmd
}
