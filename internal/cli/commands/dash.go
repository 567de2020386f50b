package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fleettrack-dev/fleettrack/internal/guard"
)

// NewDashCmd creates the dash command
func NewDashCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Open the web dashboard in browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDash(env)
		},
	}

	return cmd
}

func runDash(env *Env) error {
	dashboardURL := strings.TrimRight(env.DashboardURL, "/") + guard.DashboardPath

	env.printf("Opening dashboard...\n")
	env.printf("URL: %s\n", dashboardURL)

	// Open browser based on OS
	if err := env.OpenBrowser(dashboardURL); err != nil {
		return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, dashboardURL)
	}

	return nil
}
