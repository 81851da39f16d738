package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ignis/pkg/crm"
	"github.com/mesh-intelligence/ignis/pkg/types"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query the activity log",
}

var flagEventsDay string

func withEvents(fn func(ctx context.Context, events *crm.Events) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Detach()
	return fn(context.Background(), crm.NewEvents(store, crm.WithLogger(logger)))
}

// dayArg returns the yyyymmdd of --day, today when unset.
func dayArg() (int, error) {
	if flagEventsDay == "" {
		return types.DayKey(types.MillisOf(time.Now()), nil), nil
	}
	at, err := parseTime(flagEventsDay)
	if err != nil {
		return 0, err
	}
	return types.DayKey(at, nil), nil
}

func printEvents(w io.Writer, events []types.ActivityEvent) error {
	if flagJSON {
		return writeJSON(w, events)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tLEAD\tTYPE\tDETAIL")
	for _, e := range events {
		detail := ""
		if e.Type == types.EventMovedStage {
			detail = e.FromStageID + " -> " + e.ToStageID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", formatTime(e.At), e.LeadID, e.Type, detail)
	}
	return tw.Flush()
}

var eventsListCmd = &cobra.Command{
	Use:   "list <lead-id>",
	Short: "List the events of a lead in time order",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEvents(func(ctx context.Context, events *crm.Events) error {
			list, err := events.ListByLead(ctx, workspace(), args[0])
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), list)
		})
	},
}

var eventsStageCmd = &cobra.Command{
	Use:   "stage <stage>",
	Short: "List the leads that entered a stage on a day",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := dayArg()
		if err != nil {
			return err
		}
		return withEvents(func(ctx context.Context, events *crm.Events) error {
			list, err := events.ListStageEntries(ctx, workspace(), args[0], day)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), list)
		})
	},
}

var eventsCountCmd = &cobra.Command{
	Use:   "count <type>",
	Short: "Count the events of a type on a day",
	Long: `Count reports how many events of the given type were recorded on a day.

Types: CREATED, MOVED_STAGE, NOTE_UPDATED, PRIORITY_CHANGED, TASK_CREATED, TASK_DONE`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := dayArg()
		if err != nil {
			return err
		}
		typ := types.EventType(strings.ToUpper(args[0]))
		return withEvents(func(ctx context.Context, events *crm.Events) error {
			n, err := events.CountByDay(ctx, workspace(), typ, day)
			if err != nil {
				return err
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"type": typ, "day": day, "count": n})
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		})
	},
}

func init() {
	eventsStageCmd.Flags().StringVar(&flagEventsDay, "day", "", "day (YYYY-MM-DD, default today)")
	eventsCountCmd.Flags().StringVar(&flagEventsDay, "day", "", "day (YYYY-MM-DD, default today)")

	eventsCmd.AddCommand(eventsListCmd, eventsStageCmd, eventsCountCmd)
}
