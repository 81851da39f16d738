package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ignis/pkg/crm"
	"github.com/mesh-intelligence/ignis/pkg/types"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Record and report daily outreach metrics",
	Long: `Metrics keeps one row of counters per workspace, board and day. Dates are
YYYY-MM-DD and default to today.`,
}

var (
	flagMetricsBoard string
	flagMetricsDate  string
)

// counter binds a flag name to a DailyMetrics field.
type counter struct {
	flag  string
	usage string
	field func(dm *types.DailyMetrics) *int
}

var counters = []counter{
	{"msg1-disparos", "first messages sent", func(dm *types.DailyMetrics) *int { return &dm.Msg1Disparos }},
	{"msg1-respostas", "replies to first messages", func(dm *types.DailyMetrics) *int { return &dm.Msg1Respostas }},
	{"msg2-disparos", "second messages sent", func(dm *types.DailyMetrics) *int { return &dm.Msg2Disparos }},
	{"msg2-respostas", "replies to second messages", func(dm *types.DailyMetrics) *int { return &dm.Msg2Respostas }},
	{"cta-disparos", "calls to action sent", func(dm *types.DailyMetrics) *int { return &dm.CtaDisparos }},
	{"agend-novos", "meetings booked from new approaches", func(dm *types.DailyMetrics) *int { return &dm.AgendNovos }},
	{"follow-enviados", "follow-ups sent", func(dm *types.DailyMetrics) *int { return &dm.FollowEnviados }},
	{"follow-respostas", "replies to follow-ups", func(dm *types.DailyMetrics) *int { return &dm.FollowRespostas }},
	{"follow-cta", "calls to action in follow-ups", func(dm *types.DailyMetrics) *int { return &dm.FollowCta }},
	{"agend-follow", "meetings booked from follow-ups", func(dm *types.DailyMetrics) *int { return &dm.AgendFollow }},
}

func withMetrics(fn func(ctx context.Context, metrics *crm.Metrics) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Detach()
	return fn(context.Background(), crm.NewMetrics(store, crm.WithLogger(logger)))
}

// metricsKey returns the board and date key selected by the flags.
func metricsKey(metrics *crm.Metrics) (types.Board, string, error) {
	board, err := parseBoard(flagMetricsBoard)
	if err != nil {
		return "", "", err
	}
	date := flagMetricsDate
	if date == "" {
		date = metrics.Today()
	}
	if !crm.ValidDateKey(date) {
		return "", "", usagef("invalid date %q (use YYYY-MM-DD)", date)
	}
	return board, date, nil
}

// metricsView is the JSON shape of a day: the stored row plus its rates.
type metricsView struct {
	*types.DailyMetrics
	Rates crm.Rates `json:"rates"`
}

func printMetrics(w io.Writer, dm *types.DailyMetrics) error {
	r := crm.ComputeRates(*dm)
	if flagJSON {
		return writeJSON(w, metricsView{DailyMetrics: dm, Rates: r})
	}
	state := "open"
	if dm.IsClosed() {
		state = "closed " + formatTime(*dm.ClosedAt)
	}
	fmt.Fprintf(w, "%s %s %s (%s)\n", dm.DateKey, crm.WeekdayName(dm.DateKey), dm.Board, state)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range counters {
		fmt.Fprintf(tw, "  %s\t%d\n", c.flag, *c.field(dm))
	}
	fmt.Fprintf(tw, "  msg1 rate\t%s\n", crm.FormatPctInt(r.Msg1))
	fmt.Fprintf(tw, "  msg2 rate\t%s\n", crm.FormatPctInt(r.Msg2))
	fmt.Fprintf(tw, "  cta rate\t%s\n", crm.FormatPct2(r.CTA))
	fmt.Fprintf(tw, "  meetings\t%d\n", r.AgendTotal)
	fmt.Fprintf(tw, "  contacts\t%d\n", r.ContatosTotal)
	fmt.Fprintf(tw, "  meetings per action\t%s\n", crm.FormatPct2(r.AgendAcoes))
	return tw.Flush()
}

// loadDay returns the stored row of the day or an unsaved empty one.
func loadDay(ctx context.Context, metrics *crm.Metrics, board types.Board, date string) (*types.DailyMetrics, error) {
	dm, err := metrics.GetDailyMetrics(ctx, workspace(), board, date)
	if err != nil || dm != nil {
		return dm, err
	}
	empty := metrics.EmptyDailyMetrics(workspace(), board, date)
	return &empty, nil
}

var metricsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the counters and rates of a day",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMetrics(func(ctx context.Context, metrics *crm.Metrics) error {
			board, date, err := metricsKey(metrics)
			if err != nil {
				return err
			}
			dm, err := loadDay(ctx, metrics, board, date)
			if err != nil {
				return err
			}
			return printMetrics(cmd.OutOrStdout(), dm)
		})
	},
}

var metricsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set counters of a day",
	Long: `Set stores the given counters; counters without a flag keep their value.

Example:
  ignis metrics set --board SOCIAL --msg1-disparos 40 --msg1-respostas 6`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMetrics(func(ctx context.Context, metrics *crm.Metrics) error {
			board, date, err := metricsKey(metrics)
			if err != nil {
				return err
			}
			dm, err := loadDay(ctx, metrics, board, date)
			if err != nil {
				return err
			}
			for _, c := range counters {
				if !cmd.Flags().Changed(c.flag) {
					continue
				}
				n, err := cmd.Flags().GetInt(c.flag)
				if err != nil {
					return usageError{err}
				}
				if n < 0 {
					return usagef("--%s must not be negative", c.flag)
				}
				*c.field(dm) = n
			}
			saved, err := metrics.UpsertDailyMetrics(ctx, *dm)
			if err != nil {
				return err
			}
			return printMetrics(cmd.OutOrStdout(), saved)
		})
	},
}

var metricsCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Mark a day closed",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMetrics(func(ctx context.Context, metrics *crm.Metrics) error {
			board, date, err := metricsKey(metrics)
			if err != nil {
				return err
			}
			dm, err := metrics.CloseDailyMetrics(ctx, workspace(), board, date)
			if err != nil {
				return err
			}
			return printMetrics(cmd.OutOrStdout(), dm)
		})
	},
}

var metricsReopenCmd = &cobra.Command{
	Use:   "reopen",
	Short: "Reopen a closed day",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMetrics(func(ctx context.Context, metrics *crm.Metrics) error {
			board, date, err := metricsKey(metrics)
			if err != nil {
				return err
			}
			dm, err := metrics.ReopenDailyMetrics(ctx, workspace(), board, date)
			if err != nil {
				return err
			}
			if dm == nil {
				return fmt.Errorf("metrics %s %s: %w", board, date, errNotFound)
			}
			return printMetrics(cmd.OutOrStdout(), dm)
		})
	},
}

var metricsWeekCmd = &cobra.Command{
	Use:   "week",
	Short: "Show the Monday-to-Sunday week containing a day",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMetrics(func(ctx context.Context, metrics *crm.Metrics) error {
			board, date, err := metricsKey(metrics)
			if err != nil {
				return err
			}
			week, err := metrics.GetWeekMetrics(ctx, workspace(), board, date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flagJSON {
				return writeJSON(out, week)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tDAY\tCONTACTS\tMEETINGS\tMSG1\tCTA\tCLOSED")
			for _, d := range week {
				if d.Metrics == nil {
					fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t-\n", d.DateKey, crm.WeekdayName(d.DateKey))
					continue
				}
				r := crm.ComputeRates(*d.Metrics)
				closed := "no"
				if d.Metrics.IsClosed() {
					closed = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n", d.DateKey, crm.WeekdayName(d.DateKey),
					r.ContatosTotal, r.AgendTotal, crm.FormatPctInt(r.Msg1), crm.FormatPct2(r.CTA), closed)
			}
			return tw.Flush()
		})
	},
}

var metricsRowCmd = &cobra.Command{
	Use:   "row",
	Short: "Print a day as a tab-separated spreadsheet row",
	Long: `Row prints the day as one tab-separated line, columns A to P, ready to
paste into the tracking spreadsheet.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMetrics(func(ctx context.Context, metrics *crm.Metrics) error {
			board, date, err := metricsKey(metrics)
			if err != nil {
				return err
			}
			dm, err := loadDay(ctx, metrics, board, date)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), crm.SheetsRow(*dm))
			return err
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{metricsShowCmd, metricsSetCmd, metricsCloseCmd, metricsReopenCmd, metricsWeekCmd, metricsRowCmd} {
		c.Flags().StringVarP(&flagMetricsBoard, "board", "b", string(types.BoardOutbound), "board (OUTBOUND or SOCIAL)")
		c.Flags().StringVarP(&flagMetricsDate, "date", "d", "", "day (YYYY-MM-DD, default today)")
	}
	for _, c := range counters {
		metricsSetCmd.Flags().Int(c.flag, 0, c.usage)
	}

	metricsCmd.AddCommand(metricsShowCmd, metricsSetCmd, metricsCloseCmd, metricsReopenCmd, metricsWeekCmd, metricsRowCmd)
}
