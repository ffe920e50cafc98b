package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/okian/timeclock/internal/domain/geo"
	"github.com/okian/timeclock/internal/domain/model"
)

// Defaults applied when neither flags nor environment say otherwise.
const (
	defaultURL        = "http://localhost:9080"
	defaultTimeout    = 15 * time.Second
	defaultGeoTimeout = 5 * time.Second
	timeLayout        = "15:04"
)

type options struct {
	url        string
	org        string
	worker     string
	timeout    time.Duration
	asJSON     bool
	lat, lon   float64
	locateURL  string
	geoTimeout time.Duration
	fallback   geo.Point
	device     string
	idemKey    string
}

func (o *options) client() *Client {
	return NewClient(o.url, o.org, o.worker, o.timeout)
}

// NewRootCommand builds the timeclockctl command tree.
func NewRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "timeclockctl",
		Short:         "Clock in and out and read attendance from a timeclock server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.url, "url", envOr("TIMECLOCK_URL", defaultURL), "server base URL")
	pf.StringVar(&o.org, "org", os.Getenv("TIMECLOCK_ORG"), "organization id")
	pf.StringVar(&o.worker, "worker", os.Getenv("TIMECLOCK_WORKER"), "worker id")
	pf.DurationVar(&o.timeout, "timeout", defaultTimeout, "request timeout")
	pf.BoolVar(&o.asJSON, "json", false, "print raw JSON")

	root.AddCommand(
		punchCommand(o, "in", "Clock in", model.KindEntry),
		punchCommand(o, "out", "Clock out", model.KindExit),
		statusCommand(o),
		dayCommand(o),
		teamCommand(o),
		complianceCommand(o),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func punchCommand(o *options, use, short string, kind model.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p := o.position(ctx, cmd)
			key := o.idemKey
			if key == "" {
				key = uuid.NewString()
			}
			ev, err := o.client().Clock(ctx, kind, &p, o.device, key)
			if err != nil {
				return err
			}
			if o.asJSON {
				return printJSON(cmd.OutOrStdout(), ev)
			}
			verb := "Clocked in"
			if kind == model.KindExit {
				verb = "Clocked out"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at %s (event %s)\n", verb, ev.Timestamp.Local().Format(timeLayout), ev.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64Var(&o.lat, "lat", 0, "latitude of the device")
	f.Float64Var(&o.lon, "lon", 0, "longitude of the device")
	f.StringVar(&o.locateURL, "locate-url", os.Getenv("TIMECLOCK_LOCATE_URL"), "position service returning {latitude, longitude}")
	f.DurationVar(&o.geoTimeout, "geo-timeout", defaultGeoTimeout, "position lookup timeout")
	f.Float64Var(&o.fallback.Latitude, "fallback-lat", 40.4168, "latitude used when no position is available")
	f.Float64Var(&o.fallback.Longitude, "fallback-lon", -3.7038, "longitude used when no position is available")
	f.StringVar(&o.device, "device", "timeclockctl", "device description stored with the punch")
	f.StringVar(&o.idemKey, "idempotency-key", "", "key making retries return the original punch (random by default)")
	return cmd
}

// position resolves where the punch happens, warning when it falls back.
func (o *options) position(ctx context.Context, cmd *cobra.Command) geo.Point {
	var loc geo.Locator
	switch {
	case cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon"):
		loc = geo.Static(geo.Point{Latitude: o.lat, Longitude: o.lon})
	case o.locateURL != "":
		loc = HTTPLocator(&http.Client{}, o.locateURL)
	}
	p, usedFallback, err := geo.Locate(ctx, loc, o.geoTimeout, o.fallback)
	if usedFallback {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; using %.4f,%.4f\n", err, p.Latitude, p.Longitude)
	}
	return p
}

func statusCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether you are clocked in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := o.client().State(cmd.Context())
			if err != nil {
				return err
			}
			if o.asJSON {
				return printJSON(cmd.OutOrStdout(), st)
			}
			out := cmd.OutOrStdout()
			switch {
			case st.LastEvent == nil:
				fmt.Fprintln(out, "Never clocked; you can clock in.")
			case st.CanClockOut:
				fmt.Fprintf(out, "Clocked in since %s.\n", st.LastEvent.Timestamp.Local().Format("2006-01-02 15:04"))
			default:
				fmt.Fprintf(out, "Clocked out since %s.\n", st.LastEvent.Timestamp.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func dayCommand(o *options) *cobra.Command {
	var worker, date, from, to string
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Show a day record, or a range with --from/--to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := o.client()
			out := cmd.OutOrStdout()
			if from != "" || to != "" {
				rep, err := c.Days(cmd.Context(), worker, from, to)
				if err != nil {
					return err
				}
				if o.asJSON {
					return printJSON(out, rep)
				}
				for _, d := range rep.Days {
					printDay(out, d)
				}
				fmt.Fprintf(out, "total %.2fh\n", rep.TotalHours)
				return nil
			}
			rec, err := c.Day(cmd.Context(), worker, date)
			if err != nil {
				return err
			}
			if o.asJSON {
				return printJSON(out, rec)
			}
			printDay(out, rec)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&worker, "for", "", "worker id (managers only; defaults to you)")
	f.StringVar(&date, "date", "", "day as YYYY-MM-DD (defaults to today)")
	f.StringVar(&from, "from", "", "range start YYYY-MM-DD")
	f.StringVar(&to, "to", "", "range end YYYY-MM-DD")
	return cmd
}

func teamCommand(o *options) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Show every member's day (managers only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := o.client().Team(cmd.Context(), date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if o.asJSON {
				return printJSON(out, view)
			}
			fmt.Fprintf(out, "%s: %d members\n", view.Date, len(view.Records))
			for _, r := range view.Records {
				printDay(out, r)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (defaults to today)")
	return cmd
}

func complianceCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compliance",
		Short: "Check whether today's scheduled entry is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := o.client().Compliance(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if o.asJSON {
				return printJSON(out, res)
			}
			if !res.Missing {
				fmt.Fprintln(out, "OK: nothing missing.")
				return nil
			}
			fmt.Fprintf(out, "Missing entry (%s)", res.Kind)
			if res.Scheduled != nil {
				fmt.Fprintf(out, ", scheduled at %s", res.Scheduled.Local().Format(timeLayout))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func printDay(w io.Writer, d model.DayRecord) {
	hours := "-"
	if d.TotalHours != nil {
		hours = fmt.Sprintf("%.2fh", *d.TotalHours)
	}
	fmt.Fprintf(w, "%s  %-8s  %-10s  %6s  %d punches\n", d.Date, shortID(d.WorkerID), d.Status, hours, len(d.Events))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
