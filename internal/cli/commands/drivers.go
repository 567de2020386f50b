package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleettrack-dev/fleettrack/internal/fleet"
	"github.com/fleettrack-dev/fleettrack/internal/forms"
	"github.com/fleettrack-dev/fleettrack/internal/registration"
)

var fieldLabels = map[string]string{
	registration.FieldName:     "Name",
	registration.FieldEmail:    "Email",
	registration.FieldPhone:    "Phone",
	registration.FieldVehicle:  "Vehicle",
	registration.FieldStatus:   "Status",
	registration.FieldLocation: "Location",
}

// NewDriversCmd creates the drivers command group
func NewDriversCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "List and register drivers",
	}

	cmd.AddCommand(newDriversListCmd(env))
	cmd.AddCommand(newDriversAddCmd(env))

	return cmd
}

func newDriversListCmd(env *Env) *cobra.Command {
	var page, perPage int

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List drivers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDriversList(cmd.Context(), env, page, perPage)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", fleet.DefaultPerPage, "Drivers per page")

	return cmd
}

func runDriversList(ctx context.Context, env *Env, page, perPage int) error {
	store, api, err := env.Open(ctx)
	if err != nil {
		return err
	}
	if _, err := env.RequireUser(ctx, store); err != nil {
		return err
	}

	result, err := fleet.NewRemoteSource(api).Drivers(ctx, page, perPage)
	if err != nil {
		return env.backendError(ctx, store, err)
	}

	if len(result.Data) == 0 {
		env.printf("No drivers found.\n")
		env.printf("\nRegister one with: fleettrack drivers add\n")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVEHICLE\tSTATUS\tLOCATION\tUPDATED")
	fmt.Fprintln(w, "──\t────\t───────\t──────\t────────\t───────")
	for _, d := range result.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID,
			truncate(d.Name, 28),
			d.Vehicle,
			d.Status.Label(),
			truncate(d.Location, 24),
			fleet.RelativeTime(d.LastUpdate, now),
		)
	}
	w.Flush()

	p := result.Pagination
	env.printf("\nPage %d of %d (%d drivers)\n", p.Page, p.TotalPages, p.Total)
	return nil
}

type driverFlags struct {
	values map[string]*string
}

func newDriversAddCmd(env *Env) *cobra.Command {
	flags := driverFlags{values: map[string]*string{}}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a driver (prompts for anything not given as a flag)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDriversAdd(cmd.Context(), env, flags)
		},
	}

	for _, step := range registration.Steps {
		for _, field := range registration.StepFields[step.Number] {
			v := new(string)
			flags.values[field] = v
			cmd.Flags().StringVar(v, field, "", fmt.Sprintf("%s (step %d: %s)", fieldLabels[field], step.Number, step.Title))
		}
	}

	return cmd
}

func runDriversAdd(ctx context.Context, env *Env, flags driverFlags) error {
	store, api, err := env.Open(ctx)
	if err != nil {
		return err
	}
	if _, err := env.RequireUser(ctx, store); err != nil {
		return err
	}

	wizard := registration.New(forms.New())
	given := map[string]bool{}
	for field, v := range flags.values {
		if *v == "" {
			continue
		}
		given[field] = true
		if err := wizard.Set(field, *v); err != nil {
			return fmt.Errorf("invalid --%s: %w", field, err)
		}
	}

	if env.Interactive {
		if err := promptSteps(env, wizard, given); err != nil {
			return err
		}
	}

	in, err := wizard.Submit()
	if err != nil {
		return invalidInput(err)
	}

	driver, err := fleet.NewRemoteSource(api).RegisterDriver(ctx, in)
	if err != nil {
		return env.backendError(ctx, store, err)
	}

	env.printf("✓ Driver registered\n")
	env.printf("  %s: %s (%s), %s\n", driver.ID, driver.Name, driver.Vehicle, driver.Status.Label())
	return nil
}

// promptSteps walks the wizard, asking for every field that was not given as
// a flag or that failed validation
func promptSteps(env *Env, wizard *registration.Wizard, given map[string]bool) error {
	for {
		step := wizard.Current()
		env.printf("\nStep %d of %d: %s (%d%%)\n", step.Number, registration.TotalSteps, step.Title, wizard.Progress())

		errs := wizard.Errors()
		for _, field := range registration.StepFields[step.Number] {
			if msg, failed := errs[field]; failed {
				env.printf("  %s\n", msg)
			} else if given[field] {
				continue
			}
			if err := promptField(env, wizard, field); err != nil {
				return err
			}
			given[field] = true
		}

		if !wizard.Next() {
			continue
		}
		if step.Number == registration.TotalSteps {
			return nil
		}
	}
}

func promptField(env *Env, wizard *registration.Wizard, field string) error {
	current := wizard.Data().Value(field)

	if field == registration.FieldStatus {
		items := make([]string, len(registration.SelectableStatuses))
		for i, s := range registration.SelectableStatuses {
			items[i] = s.Label()
		}
		i, err := env.choose(fieldLabels[field], field, items)
		if err != nil {
			return err
		}
		return wizard.Set(field, string(registration.SelectableStatuses[i]))
	}

	value, err := env.ask(fieldLabels[field], field, current, false, nil)
	if err != nil {
		return err
	}
	return wizard.Set(field, value)
}
