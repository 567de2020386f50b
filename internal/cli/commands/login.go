package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleettrack-dev/fleettrack/internal/apperr"
	"github.com/fleettrack-dev/fleettrack/internal/cli/userconfig"
	"github.com/fleettrack-dev/fleettrack/internal/forms"
)

// NewLoginCmd creates the login command
func NewLoginCmd(env *Env) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a FleetTrack backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, env, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set FLEETTRACK_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set FLEETTRACK_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, env *Env, email, password string) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("FLEETTRACK_EMAIL")
	}
	if password == "" {
		password = os.Getenv("FLEETTRACK_PASSWORD")
	}

	var err error
	if email == "" {
		if email, err = env.ask("Email", "email", "", false, required("email")); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = env.ask("Password", "password", "", true, required("password")); err != nil {
			return err
		}
	}

	form := forms.SignIn{Email: email, Password: password}
	if err := forms.New().Struct(&form); err != nil {
		return invalidInput(err)
	}

	ctx := cmd.Context()
	store, _, err := env.Open(ctx)
	if err != nil {
		return err
	}

	env.printf("Logging in to %s...\n", env.APIURL)

	if err := store.Login(ctx, form.Email, form.Password); err != nil {
		return fmt.Errorf("login failed: %s", apperr.Message(err))
	}

	if env.ConfigPath != "" {
		if err := userconfig.RememberAPI(env.ConfigPath, env.APIURL); err != nil {
			env.Logger.Warn().Err(err).Msg("Failed to remember backend URL")
		}
	}

	user := store.CurrentUser()
	env.printf("✓ Login successful!\n")
	env.printf("  User: %s (%s)\n", user.Name, user.Email)
	if user.Role != "" {
		env.printf("  Role: %s\n", user.Role)
	}

	return nil
}
