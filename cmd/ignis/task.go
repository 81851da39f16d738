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

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage follow-up tasks",
}

var (
	flagTaskDue    string
	flagTaskLead   string
	flagTaskStatus string
)

func withTasks(fn func(ctx context.Context, tasks *crm.Tasks) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Detach()
	return fn(context.Background(), crm.NewTasks(store, crm.WithLogger(logger)))
}

func printTask(w io.Writer, t *types.Task) error {
	if flagJSON {
		return writeJSON(w, t)
	}
	return printTasks(w, []types.Task{*t})
}

func printTasks(w io.Writer, tasks []types.Task) error {
	if flagJSON {
		return writeJSON(w, tasks)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLEAD\tSTATUS\tDUE\tTITLE")
	for _, t := range tasks {
		due := formatTime(t.DueAt)
		if t.SnoozeUntil != nil {
			due = formatTime(*t.SnoozeUntil) + " (snoozed)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.LeadID, t.Status, due, t.Title)
	}
	return tw.Flush()
}

func taskNotFound(id string) error {
	return fmt.Errorf("task %s: %w", id, errNotFound)
}

var taskAddCmd = &cobra.Command{
	Use:   "add <lead-id> <title>",
	Short: "Create a task for a lead",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagTaskDue == "" {
			return usagef("--due is required")
		}
		due, err := parseTime(flagTaskDue)
		if err != nil {
			return err
		}
		return withTasks(func(ctx context.Context, tasks *crm.Tasks) error {
			task, err := tasks.CreateTask(ctx, workspace(), args[0], args[1], due)
			if err != nil {
				return err
			}
			if task == nil {
				return leadNotFound(args[0])
			}
			return printTask(cmd.OutOrStdout(), task)
		})
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task done",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTasks(func(ctx context.Context, tasks *crm.Tasks) error {
			task, err := tasks.CompleteTask(ctx, workspace(), args[0])
			if err != nil {
				return err
			}
			if task == nil {
				return taskNotFound(args[0])
			}
			return printTask(cmd.OutOrStdout(), task)
		})
	},
}

var taskSnoozeCmd = &cobra.Command{
	Use:   "snooze <task-id> <until>",
	Short: "Postpone a task",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		until, err := parseTime(args[1])
		if err != nil {
			return err
		}
		return withTasks(func(ctx context.Context, tasks *crm.Tasks) error {
			task, err := tasks.SnoozeTask(ctx, workspace(), args[0], until)
			if err != nil {
				return err
			}
			if task == nil {
				return taskNotFound(args[0])
			}
			return printTask(cmd.OutOrStdout(), task)
		})
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks of a lead or by status",
	Long: `List shows the tasks of one lead when --lead is given, otherwise the
workspace's tasks in --status. Tasks are ordered by due date.`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTasks(func(ctx context.Context, tasks *crm.Tasks) error {
			var (
				list []types.Task
				err  error
			)
			if flagTaskLead != "" {
				list, err = tasks.ListTasksByLead(ctx, workspace(), flagTaskLead)
			} else {
				list, err = tasks.ListTasksByStatus(ctx, workspace(), types.TaskStatus(flagTaskStatus))
			}
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), list)
		})
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&flagTaskDue, "due", "", "due time (epoch ms, RFC 3339 or YYYY-MM-DD)")

	taskListCmd.Flags().StringVar(&flagTaskLead, "lead", "", "lead id")
	taskListCmd.Flags().StringVar(&flagTaskStatus, "status", string(types.TaskOpen), "status (open, done, snoozed)")

	taskCmd.AddCommand(taskAddCmd, taskDoneCmd, taskSnoozeCmd, taskListCmd)
}
