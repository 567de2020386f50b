package commands

import (
	"github.com/spf13/cobra"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(env *Env) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, _, err := env.Open(ctx)
			if err != nil {
				return err
			}

			user, err := env.RequireUser(ctx, store)
			if err != nil {
				return err
			}

			if verify {
				if user = store.RefetchMe(ctx); user == nil {
					return ErrNotLoggedIn
				}
			}

			env.printf("%s (%s)\n", user.Name, user.Email)
			if user.Role != "" {
				env.printf("Role: %s\n", user.Role)
			}
			env.printf("Backend: %s\n", env.APIURL)
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Confirm the session with the backend instead of trusting the stored identity")

	return cmd
}
