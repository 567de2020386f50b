package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleettrack-dev/fleettrack/internal/cli/commands"
	"github.com/fleettrack-dev/fleettrack/internal/cli/userconfig"
	"github.com/fleettrack-dev/fleettrack/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree over env
func NewRootCmd(env *commands.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fleettrack",
		Short: "FleetTrack - Fleet management from the terminal",
		Long: `FleetTrack CLI - Manage your fleet from the terminal.

Log in once and list drivers, register new ones and follow trips against
the same backend the web dashboard uses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return resolveDefaults(cmd, env)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&env.APIURL, "api", commands.DefaultAPIURL, "Backend API URL (or set FLEETTRACK_API)")
	flags.StringVar(&env.DashboardURL, "dashboard", commands.DefaultDashboardURL, "Web dashboard URL (or set FLEETTRACK_DASHBOARD_URL)")
	flags.StringVar(&env.StorageKind, "storage", commands.StorageKeyring, "Where to keep the session: keyring or file")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fleettrack version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(commands.NewLoginCmd(env))
	rootCmd.AddCommand(commands.NewRegisterCmd(env))
	rootCmd.AddCommand(commands.NewLogoutCmd(env))
	rootCmd.AddCommand(commands.NewWhoamiCmd(env))
	rootCmd.AddCommand(commands.NewDriversCmd(env))
	rootCmd.AddCommand(commands.NewTripsCmd(env))
	rootCmd.AddCommand(commands.NewDashCmd(env))

	return rootCmd
}

// resolveDefaults fills URLs not given as flags from the environment, then
// from the user config
func resolveDefaults(cmd *cobra.Command, env *commands.Env) error {
	var saved *userconfig.UserConfig
	if env.ConfigPath != "" {
		cfg, err := userconfig.Load(env.ConfigPath)
		if err != nil {
			env.Logger.Warn().Err(err).Msg("Ignoring unreadable user config")
		} else {
			saved = cfg
		}
	}

	flags := cmd.Flags()
	if !flags.Changed("api") {
		if v := os.Getenv("FLEETTRACK_API"); v != "" {
			env.APIURL = v
		} else if saved != nil && saved.APIURL != "" {
			env.APIURL = saved.APIURL
		}
	}
	if !flags.Changed("dashboard") {
		if v := os.Getenv("FLEETTRACK_DASHBOARD_URL"); v != "" {
			env.DashboardURL = v
		} else if saved != nil && saved.DashboardURL != "" {
			env.DashboardURL = saved.DashboardURL
		}
	}

	return env.Validate()
}

// Execute runs the root command
func Execute() error {
	// Logs go to stderr so command output stays clean
	level := os.Getenv("FLEETTRACK_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger.InitWithWriter(level, "console", os.Stderr)

	env := commands.NewEnv(logger.GetLogger())
	if path, err := userconfig.GetConfigPath(); err == nil {
		env.ConfigPath = path
	}

	if err := NewRootCmd(env).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
