package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleettrack-dev/fleettrack/internal/apperr"
	"github.com/fleettrack-dev/fleettrack/internal/forms"
	"github.com/fleettrack-dev/fleettrack/internal/session"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(env *Env) *cobra.Command {
	var name, email, password, role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, env, name, email, password, role)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password, at least 6 characters (will prompt if not provided)")
	cmd.Flags().StringVar(&role, "role", "", "Account role (backend default when empty)")

	return cmd
}

func runRegister(cmd *cobra.Command, env *Env, name, email, password, role string) error {
	var err error
	if name == "" {
		if name, err = env.ask("Name", "name", "", false, required("name")); err != nil {
			return err
		}
	}
	if email == "" {
		if email, err = env.ask("Email", "email", "", false, required("email")); err != nil {
			return err
		}
	}

	confirm := password
	if password == "" {
		if password, err = env.ask("Password", "password", "", true, required("password")); err != nil {
			return err
		}
		if confirm, err = env.ask("Confirm password", "password", "", true, nil); err != nil {
			return err
		}
	}

	form := forms.SignUp{Name: name, Email: email, Password: password, ConfirmPassword: confirm}
	form.Normalize()
	if err := forms.New().Struct(&form); err != nil {
		return invalidInput(err)
	}

	ctx := cmd.Context()
	store, _, err := env.Open(ctx)
	if err != nil {
		return err
	}

	err = store.Register(ctx, session.RegisterInput{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Role:     role,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %s", apperr.Message(err))
	}

	user := store.CurrentUser()
	env.printf("✓ Account created!\n")
	env.printf("  User: %s (%s)\n", user.Name, user.Email)

	return nil
}
