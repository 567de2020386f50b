package commands

import (
	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, _, err := env.Open(ctx)
			if err != nil {
				return err
			}

			if store.CurrentUser() == nil {
				env.printf("Not logged in.\n")
				return nil
			}

			// Logout always clears the local session; a backend failure is only logged
			_ = store.Logout(ctx)
			env.printf("✓ Logged out\n")
			return nil
		},
	}
}
