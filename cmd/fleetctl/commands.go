// README: fleetctl subcommands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"fleetops/internal/modules/billing"
	"fleetops/internal/modules/dispatch"
	"fleetops/internal/modules/matching"
	"fleetops/internal/platform"
	"fleetops/internal/types"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func runVerify(ctx context.Context, e *env, args []string) error {
	acct, err := e.rt.Current().Client.VerifyConnection(ctx)
	if err != nil {
		if platform.IsAuth(err) {
			return fmt.Errorf("token rejected, refresh FLEETOPS_PLATFORM_TOKEN: %w", err)
		}
		return err
	}
	fmt.Fprintf(e.out, "connected as %s (%s access)\n", acct.Name, acct.Scope)
	return nil
}

func runDrivers(ctx context.Context, e *env, args []string) error {
	fs := newFlags("drivers")
	details := fs.Bool("details", false, "fetch driver and car detail")
	search := fs.String("search", "", "name filter")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st := e.rt.Current()
	progress := func(done, total int) { fmt.Fprintf(os.Stderr, "\r%d/%d", done, total) }
	var err error
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tSTATUS\tVEHICLE")
	if *details {
		drivers, derr := st.Fleet.DriversWithDetails(ctx, progress)
		fmt.Fprintln(os.Stderr)
		err = derr
		for _, d := range drivers {
			vehicle := ""
			if d.Vehicle != nil {
				vehicle = fmt.Sprintf("%s %s %s", d.Vehicle.Color, d.Vehicle.Make, d.Vehicle.PlateNumber)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", d.ID, d.FullName(), d.Phone, d.Status, vehicle)
		}
	} else {
		drivers, derr := st.Fleet.Drivers(ctx, *search, nil)
		err = derr
		for _, d := range drivers {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\n", d.ID, d.FullName(), d.Phone, d.Status)
		}
	}
	if err != nil {
		return err
	}
	return tw.Flush()
}

func runBilling(ctx context.Context, e *env, args []string) error {
	fs := newFlags("billing")
	from := fs.String("from", "", "first day")
	to := fs.String("to", "", "last day")
	out := fs.String("out", "", "write the CSV export to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" || *to == "" {
		return errUsage
	}
	rep, err := e.rt.Current().Billing.Generate(ctx, *from, *to, func(done, total int) {
		fmt.Fprintf(os.Stderr, "\rride details %d/%d", done, total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DRIVER\tFINISHED\tNO SHOW\tDRIVER CANCELED\tTOTAL\t")
	for _, d := range rep.Drivers {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t\n", d.DriverName, d.FinishedCount, d.NoShowCount, d.DriverCanceledCount, d.TotalAmount)
	}
	t := rep.Totals
	fmt.Fprintf(tw, "TOTAL (%d drivers)\t%d\t%d\t%d\t%s\t\n", t.Drivers, t.Finished, t.NoShow, t.DriverCanceled, t.Amount)
	if err := tw.Flush(); err != nil {
		return err
	}
	if rep.ID != 0 {
		fmt.Fprintf(e.out, "archived as report %d\n", rep.ID)
	}

	if *out == "" {
		return nil
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := billing.WriteCSV(f, rep); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "export written to %s\n", *out)
	return nil
}

type windowFlags struct {
	driver, target types.ID
	date, rng      string
	reason         string
	dryRun         bool
}

func parseWindow(name string, args []string, withTarget bool) (windowFlags, matching.TimeRange, error) {
	var wf windowFlags
	fs := newFlags(name)
	driver := fs.String("driver", "", "driver id")
	target := fs.String("to", "", "new driver id")
	fs.StringVar(&wf.date, "date", "", "YYYY-MM-DD")
	fs.StringVar(&wf.rng, "range", "", "HH:MM-HH:MM")
	fs.StringVar(&wf.reason, "reason", dispatch.DefaultCancelReason, "cancel reason")
	fs.BoolVar(&wf.dryRun, "dry-run", false, "list matched rides without changing them")
	if err := fs.Parse(args); err != nil {
		return wf, matching.TimeRange{}, err
	}
	if *driver == "" || wf.date == "" || wf.rng == "" || (withTarget && *target == "") {
		return wf, matching.TimeRange{}, errUsage
	}
	var err error
	if wf.driver, err = types.ParseID(*driver); err != nil {
		return wf, matching.TimeRange{}, fmt.Errorf("driver: %w", err)
	}
	if withTarget {
		if wf.target, err = types.ParseID(*target); err != nil {
			return wf, matching.TimeRange{}, fmt.Errorf("to: %w", err)
		}
	}
	tr, err := matching.ParseTimeRange(wf.rng)
	return wf, tr, err
}

func runCancelWindow(ctx context.Context, e *env, args []string) error {
	wf, tr, err := parseWindow("cancel-window", args, false)
	if err != nil {
		return err
	}
	if wf.dryRun {
		return previewWindow(ctx, e, wf, tr)
	}
	res, err := e.rt.Current().Dispatch.CancelWindow(ctx, wf.driver, wf.date, tr, wf.reason)
	if err != nil {
		return err
	}
	return reportOutcomes(e.out, res.Outcomes, res.Summary)
}

func runReassignWindow(ctx context.Context, e *env, args []string) error {
	wf, tr, err := parseWindow("reassign-window", args, true)
	if err != nil {
		return err
	}
	if wf.dryRun {
		return previewWindow(ctx, e, wf, tr)
	}
	res, err := e.rt.Current().Dispatch.ReassignWindow(ctx, wf.driver, wf.target, wf.date, tr)
	if err != nil {
		return err
	}
	return reportOutcomes(e.out, res.Outcomes, res.Summary)
}

func previewWindow(ctx context.Context, e *env, wf windowFlags, tr matching.TimeRange) error {
	st := e.rt.Current()
	rides, err := st.Fleet.Rides(ctx, wf.date, nil)
	if err != nil {
		return err
	}
	matched := st.Matcher.Match(rides, wf.driver, wf.date, tr)
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RIDE\tPICKUP\tSTATUS\tPASSENGER")
	for _, r := range matched {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, r.Pickup(), r.Status, r.PassengerName())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%d rides of driver %d in %s on %s (dry run)\n", len(matched), wf.driver, tr, wf.date)
	return nil
}

func runHighPrice(ctx context.Context, e *env, args []string) error {
	fs := newFlags("high-price")
	date := fs.String("date", "", "YYYY-MM-DD")
	rng := fs.String("range", "", "HH:MM-HH:MM")
	minPrice := fs.String("min", "", "minimum vendor amount")
	driver := fs.String("driver", "", "driver to assign")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *date == "" || *rng == "" || *minPrice == "" || *driver == "" {
		return errUsage
	}
	tr, err := matching.ParseTimeRange(*rng)
	if err != nil {
		return err
	}
	floor, err := types.ParseAmount(*minPrice)
	if err != nil {
		return err
	}
	target, err := types.ParseID(*driver)
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	res, err := e.rt.Current().Dispatch.AssignHighPrice(ctx, *date, tr, floor, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%d pending, %d in window, %d without detail, %d below %s\n",
		res.Pending, res.InWindow, len(res.DetailFailed), res.BelowMinPrice, floor)
	return reportOutcomes(e.out, res.Outcomes, res.Summary)
}

func runSchedules(ctx context.Context, e *env, args []string) error {
	fs := newFlags("schedules")
	date := fs.String("date", "", "YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *date == "" {
		return errUsage
	}
	out, err := e.rt.Current().Schedule.ForDate(ctx, *date)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DRIVER\tID\tROUTES\tHOURS\tSTATUSES")
	for _, d := range out {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%v\n", d.DriverName, d.DriverID, d.TotalRoutes, d.WorkHours(), d.Statuses)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%d drivers with routes on %s\n", len(out), *date)
	return nil
}

func runHistory(ctx context.Context, e *env, args []string) error {
	fs := newFlags("history")
	limit := fs.Int("limit", 20, "rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if e.rt.DB == nil {
		return errors.New("no report archive configured (FLEETOPS_DB_DSN)")
	}
	list, err := e.rt.Current().Billing.History(ctx, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFROM\tTO\tDRIVERS\tRIDES\tAMOUNT\tGENERATED")
	for _, r := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n", r.ID, r.From, r.To, r.Drivers, r.Rides, r.Amount, r.GeneratedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// reportOutcomes prints one line per ride and the summary. Any failure makes the command
// fail so scripts see a non-zero exit.
func reportOutcomes(w io.Writer, outcomes []dispatch.Outcome, sum dispatch.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RIDE\tACTION\tRESULT\tDETAIL")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", o.RideID, o.Kind, o.Status, o.Detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d total, %d succeeded, %d failed (%d state mismatch, %d auth)\n",
		sum.Total, sum.Succeeded, sum.Failed, sum.StateMismatch, sum.AuthFailed)
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d rides failed", sum.Failed, sum.Total)
	}
	return nil
}
