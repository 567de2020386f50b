package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fleettrack-dev/fleettrack/internal/fleet"
)

// NewTripsCmd creates the trips command group
func NewTripsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Inspect trips",
	}

	var search, status string
	ls := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List trips, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTripsList(cmd.Context(), env, fleet.TripFilter{Search: search, Status: status})
		},
	}
	ls.Flags().StringVar(&search, "search", "", "Match driver, vehicle or trip id")
	ls.Flags().StringVar(&status, "status", fleet.StatusAll, "all, "+joinStatuses(", "))

	cmd.AddCommand(ls)
	return cmd
}

func joinStatuses(sep string) string {
	names := make([]string, len(fleet.TripStatuses))
	for i, s := range fleet.TripStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, sep)
}

func validTripStatus(status string) bool {
	if status == "" || status == fleet.StatusAll {
		return true
	}
	for _, s := range fleet.TripStatuses {
		if string(s) == status {
			return true
		}
	}
	return false
}

func runTripsList(ctx context.Context, env *Env, filter fleet.TripFilter) error {
	if !validTripStatus(filter.Status) {
		return fmt.Errorf("invalid --status %q, must be one of: all, %s", filter.Status, joinStatuses(", "))
	}

	store, api, err := env.Open(ctx)
	if err != nil {
		return err
	}
	if _, err := env.RequireUser(ctx, store); err != nil {
		return err
	}

	trips, err := fleet.NewRemoteSource(api).Trips(ctx, filter)
	if err != nil {
		return env.backendError(ctx, store, err)
	}

	if len(trips) == 0 {
		env.printf("No trips found.\n")
		return nil
	}

	w := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDRIVER\tVEHICLE\tROUTE\tSTATUS\tPROGRESS")
	fmt.Fprintln(w, "──\t──────\t───────\t─────\t──────\t────────")
	for _, t := range trips {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s → %s\t%s\t%d%%\n",
			t.ID,
			truncate(t.Driver, 24),
			t.Vehicle,
			t.Origin,
			t.Destination,
			t.Status.Label(),
			t.Progress,
		)
	}
	return w.Flush()
}
