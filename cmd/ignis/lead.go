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
	"github.com/mesh-intelligence/ignis/pkg/profileurl"
	"github.com/mesh-intelligence/ignis/pkg/types"
)

var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Manage leads",
}

// withLeads attaches the store and runs fn with a leads repository.
func withLeads(fn func(ctx context.Context, leads *crm.Leads) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Detach()
	return fn(context.Background(), crm.NewLeads(store, crm.WithLogger(logger)))
}

// usernameArg accepts a handle or a profile URL.
func usernameArg(arg string) (string, error) {
	if !strings.Contains(arg, "://") {
		return arg, nil
	}
	res := profileurl.ParseInstagramUsername(arg)
	if !res.OK {
		return "", usagef("%s: %s", arg, res.Reason)
	}
	return res.Username, nil
}

func printLeads(w io.Writer, leads []types.Lead) error {
	if flagJSON {
		return writeJSON(w, leads)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tSTAGE\tPRIORITY\tFOLLOW-UP\tUPDATED")
	for _, l := range leads {
		followUp := "-"
		if l.NextFollowUpAt != nil {
			followUp = formatTime(*l.NextFollowUpAt)
		}
		fmt.Fprintf(tw, "%s\t@%s\t%s\t%s\t%s\t%s\n",
			l.ID, l.Username, l.StageID, l.Priority, followUp, formatTime(l.UpdatedAt))
	}
	return tw.Flush()
}

func printLead(w io.Writer, l *types.Lead) error {
	if flagJSON {
		return writeJSON(w, l)
	}
	fmt.Fprintf(w, "%s @%s\n", l.ID, l.Username)
	fmt.Fprintf(w, "  board:     %s\n", l.Board)
	fmt.Fprintf(w, "  stage:     %s\n", l.StageID)
	fmt.Fprintf(w, "  priority:  %s\n", l.Priority)
	if l.DisplayName != "" {
		fmt.Fprintf(w, "  name:      %s\n", l.DisplayName)
	}
	if len(l.Tags) > 0 {
		fmt.Fprintf(w, "  tags:      %s\n", strings.Join(l.Tags, ", "))
	}
	if l.NextFollowUpAt != nil {
		fmt.Fprintf(w, "  follow-up: %s\n", formatTime(*l.NextFollowUpAt))
	}
	fmt.Fprintf(w, "  created:   %s\n", formatTime(l.CreatedAt))
	fmt.Fprintf(w, "  updated:   %s\n", formatTime(l.UpdatedAt))
	if l.Notes != "" {
		fmt.Fprintf(w, "\n%s\n", l.Notes)
	}
	return nil
}

func leadNotFound(id string) error {
	return fmt.Errorf("lead %s: %w", id, errNotFound)
}

var (
	flagLeadBoard    string
	flagUpdateBoard  string
	flagLeadStage    string
	flagLeadName     string
	flagLeadAvatar   string
	flagLeadNotes    string
	flagLeadTags     []string
	flagLeadPriority string
	flagLeadFollowUp string
	flagLeadClearFU  bool
	flagLeadBefore   string
)

var leadAddCmd = &cobra.Command{
	Use:   "add <username|profile-url>",
	Short: "Add a lead, or report the existing one",
	Long: `Add creates a lead for a handle on a board. When the workspace already
tracks the handle (case-insensitive, leading "@" ignored) the existing lead
is reported instead and only a missing avatar is filled in.

Example:
  ignis lead add @maria --board SOCIAL
  ignis lead add https://www.instagram.com/maria/ --stage Contatados`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		board, err := parseBoard(flagLeadBoard)
		if err != nil {
			return err
		}
		username, err := usernameArg(args[0])
		if err != nil {
			return err
		}
		return withLeads(func(ctx context.Context, leads *crm.Leads) error {
			res, err := leads.AddLead(ctx, crm.AddLeadInput{
				WorkspaceID: workspace(),
				Board:       board,
				StageID:     flagLeadStage,
				Username:    username,
				DisplayName: flagLeadName,
				AvatarURL:   flagLeadAvatar,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flagJSON {
				return writeJSON(out, res)
			}
			fmt.Fprintf(out, "%s %s @%s (%s)\n", res.Status, res.Lead.ID, res.Lead.Username, res.Lead.StageID)
			return nil
		})
	},
}

var leadListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the leads of a board, most recently updated first",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		board, err := parseBoard(flagLeadBoard)
		if err != nil {
			return err
		}
		return withLeads(func(ctx context.Context, leads *crm.Leads) error {
			list, err := leads.ListLeadsByBoard(ctx, workspace(), board)
			if err != nil {
				return err
			}
			if flagLeadStage != "" {
				kept := list[:0]
				for _, l := range list {
					if l.StageID == flagLeadStage {
						kept = append(kept, l)
					}
				}
				list = kept
			}
			return printLeads(cmd.OutOrStdout(), list)
		})
	},
}

var leadShowCmd = &cobra.Command{
	Use:   "show <lead-id>",
	Short: "Show a lead",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLeads(func(ctx context.Context, leads *crm.Leads) error {
			lead, err := leads.GetLead(ctx, workspace(), args[0])
			if err != nil {
				return err
			}
			if lead == nil {
				return leadNotFound(args[0])
			}
			return printLead(cmd.OutOrStdout(), lead)
		})
	},
}

var leadUpdateCmd = &cobra.Command{
	Use:   "update <lead-id>",
	Short: "Change fields of a lead",
	Long: `Update changes only the fields whose flags are given.

Example:
  ignis lead update 0190... --priority high --notes "call after 6pm"
  ignis lead update 0190... --follow-up 2024-06-20
  ignis lead update 0190... --clear-follow-up`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := leadPatchFromFlags(cmd)
		if err != nil {
			return err
		}
		return withLeads(func(ctx context.Context, leads *crm.Leads) error {
			lead, err := leads.UpdateLead(ctx, workspace(), args[0], patch)
			if err != nil {
				return err
			}
			if lead == nil {
				return leadNotFound(args[0])
			}
			return printLead(cmd.OutOrStdout(), lead)
		})
	},
}

// leadPatchFromFlags builds a patch from the flags set on cmd.
func leadPatchFromFlags(cmd *cobra.Command) (crm.LeadPatch, error) {
	var patch crm.LeadPatch
	flags := cmd.Flags()
	if flags.Changed("board") {
		board, err := parseBoard(flagUpdateBoard)
		if err != nil {
			return patch, err
		}
		patch.Board = &board
	}
	if flags.Changed("stage") {
		patch.StageID = &flagLeadStage
	}
	if flags.Changed("notes") {
		patch.Notes = &flagLeadNotes
	}
	if flags.Changed("tag") {
		patch.Tags = &flagLeadTags
	}
	if flags.Changed("priority") {
		p := types.Priority(strings.ToLower(flagLeadPriority))
		patch.Priority = &p
	}
	if flags.Changed("name") {
		patch.DisplayName = &flagLeadName
	}
	if flags.Changed("avatar") {
		patch.AvatarURL = &flagLeadAvatar
	}
	if flags.Changed("follow-up") {
		at, err := parseTime(flagLeadFollowUp)
		if err != nil {
			return patch, err
		}
		patch.NextFollowUpAt = &at
	}
	patch.ClearNextFollowUp = flagLeadClearFU
	return patch, nil
}

var leadMoveCmd = &cobra.Command{
	Use:   "move <lead-id> <stage>",
	Short: "Move a lead to another stage",
	Args:  exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLeads(func(ctx context.Context, leads *crm.Leads) error {
			lead, err := leads.MoveLeadStage(ctx, workspace(), args[0], args[1])
			if err != nil {
				return err
			}
			if lead == nil {
				return leadNotFound(args[0])
			}
			return printLead(cmd.OutOrStdout(), lead)
		})
	},
}

var leadDeleteCmd = &cobra.Command{
	Use:   "delete <lead-id>",
	Short: "Delete a lead with its tasks and events",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLeads(func(ctx context.Context, leads *crm.Leads) error {
			deleted, err := leads.DeleteLead(ctx, workspace(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return leadNotFound(args[0])
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"deleted": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		})
	},
}

var leadFollowUpsCmd = &cobra.Command{
	Use:   "followups",
	Short: "List leads whose follow-up is due",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLeads(func(ctx context.Context, leads *crm.Leads) error {
			before := types.MillisOf(time.Now())
			if flagLeadBefore != "" {
				at, err := parseTime(flagLeadBefore)
				if err != nil {
					return err
				}
				before = at
			}
			list, err := leads.ListDueFollowUps(ctx, workspace(), before)
			if err != nil {
				return err
			}
			return printLeads(cmd.OutOrStdout(), list)
		})
	},
}

func init() {
	leadAddCmd.Flags().StringVarP(&flagLeadBoard, "board", "b", string(types.BoardOutbound), "board (OUTBOUND or SOCIAL)")
	leadAddCmd.Flags().StringVarP(&flagLeadStage, "stage", "s", "", "stage (default \""+types.DefaultStage+"\")")
	leadAddCmd.Flags().StringVar(&flagLeadName, "name", "", "display name")
	leadAddCmd.Flags().StringVar(&flagLeadAvatar, "avatar", "", "avatar URL")

	leadListCmd.Flags().StringVarP(&flagLeadBoard, "board", "b", string(types.BoardOutbound), "board (OUTBOUND or SOCIAL)")
	leadListCmd.Flags().StringVarP(&flagLeadStage, "stage", "s", "", "only leads in this stage")

	f := leadUpdateCmd.Flags()
	f.StringVarP(&flagUpdateBoard, "board", "b", "", "board (OUTBOUND or SOCIAL)")
	f.StringVarP(&flagLeadStage, "stage", "s", "", "stage")
	f.StringVar(&flagLeadNotes, "notes", "", "notes")
	f.StringSliceVar(&flagLeadTags, "tag", nil, "tags, replacing the current ones (repeatable)")
	f.StringVarP(&flagLeadPriority, "priority", "p", "", "priority (low, medium, high)")
	f.StringVar(&flagLeadName, "name", "", "display name")
	f.StringVar(&flagLeadAvatar, "avatar", "", "avatar URL")
	f.StringVar(&flagLeadFollowUp, "follow-up", "", "next follow-up (epoch ms, RFC 3339 or YYYY-MM-DD)")
	f.BoolVar(&flagLeadClearFU, "clear-follow-up", false, "remove the follow-up date")

	leadFollowUpsCmd.Flags().StringVar(&flagLeadBefore, "before", "", "due before this time (default now)")

	leadCmd.AddCommand(leadAddCmd, leadListCmd, leadShowCmd, leadUpdateCmd, leadMoveCmd, leadDeleteCmd, leadFollowUpsCmd)
}
