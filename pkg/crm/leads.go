package crm

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// Index names used by the leads repository.
const (
	idxLeadsByUsername   = "[workspaceId+usernameLower]"
	idxLeadsByStage      = "[workspaceId+board+stageId]"
	idxLeadsByFollowUp   = "[workspaceId+nextFollowUpAt]"
	idxByWorkspaceLeadID = "[workspaceId+leadId]"
)

// Optional lead fields, cleared from the stored row when the entity drops
// them.
var leadOptionalFields = []string{"displayName", "avatarUrl", "nextFollowUpAt"}

// AddLeadStatus tells whether AddLead created a lead or found one.
type AddLeadStatus string

// AddLead statuses.
const (
	StatusCreated AddLeadStatus = "created"
	StatusExists  AddLeadStatus = "exists"
)

// AddLeadInput holds the arguments of AddLead.
type AddLeadInput struct {
	WorkspaceID string
	Board       types.Board
	StageID     string // defaults to types.DefaultStage
	Username    string
	DisplayName string
	AvatarURL   string
}

// AddLeadResult is the outcome of AddLead.
type AddLeadResult struct {
	Status AddLeadStatus `json:"status"`
	Lead   types.Lead    `json:"lead"`
}

// LeadPatch lists the fields UpdateLead may change. Nil fields are left
// untouched.
type LeadPatch struct {
	Board          *types.Board
	StageID        *string
	Notes          *string
	Tags           *[]string
	Priority       *types.Priority
	DisplayName    *string
	AvatarURL      *string
	NextFollowUpAt *types.Millis
	// ClearNextFollowUp removes the follow-up date; it wins over
	// NextFollowUpAt.
	ClearNextFollowUp bool
}

// Leads is the repository of leads.
type Leads struct {
	repo
}

// NewLeads returns a Leads repository over store.
func NewLeads(store types.Store, opts ...Option) *Leads {
	return &Leads{repo: newRepo(store, opts)}
}

// cleanAvatar accepts only absolute http(s) URLs.
func cleanAvatar(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http") {
		return raw
	}
	return ""
}

// AddLead creates a lead unless one with the same normalized username
// already exists in the workspace, in which case the existing lead is
// returned with StatusExists. The only change made to an existing lead is
// filling in a missing avatar.
func (l *Leads) AddLead(ctx context.Context, in AddLeadInput) (AddLeadResult, error) {
	username := types.NormalizeUsername(in.Username)
	key := strings.ToLower(username)
	stage := strings.TrimSpace(in.StageID)
	if stage == "" {
		stage = types.DefaultStage
	}

	if err := requireWorkspace(in.WorkspaceID); err != nil {
		return AddLeadResult{}, err
	}
	if key == "" {
		return AddLeadResult{}, types.Invalid("username", "required")
	}
	if !in.Board.Valid() {
		return AddLeadResult{}, types.Invalid("board", "unknown board "+string(in.Board))
	}
	avatar := cleanAvatar(in.AvatarURL)

	var result AddLeadResult
	err := l.store.Update(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableLeads)
		if err != nil {
			return err
		}
		found, err := tbl.Where(ctx, idxLeadsByUsername, in.WorkspaceID, key)
		if err != nil {
			return err
		}
		now := l.nowMillis()

		if len(found) > 0 {
			raw := found[0]
			var existing types.Lead
			if err := raw.Decode(&existing); err != nil {
				return err
			}
			if existing.AvatarURL == "" && avatar != "" {
				existing.AvatarURL = avatar
				existing.UpdatedAt = now
				existing.LastTouchedAt = now
				rec, err := overlay(raw, existing, leadOptionalFields...)
				if err != nil {
					return err
				}
				if _, err := tbl.Put(ctx, rec); err != nil {
					return err
				}
				l.logger.Debug("filled missing avatar", "lead", existing.ID)
			}
			result = AddLeadResult{Status: StatusExists, Lead: existing}
			return nil
		}

		lead := types.Lead{
			ID:            newID(),
			WorkspaceID:   in.WorkspaceID,
			Board:         in.Board,
			StageID:       stage,
			Username:      username,
			UsernameLower: key,
			DisplayName:   strings.TrimSpace(in.DisplayName),
			AvatarURL:     avatar,
			Priority:      types.PriorityMedium,
			Tags:          []string{},
			Notes:         "",
			CreatedAt:     now,
			UpdatedAt:     now,
			LastTouchedAt: now,
		}
		rec, err := types.ToRecord(lead)
		if err != nil {
			return err
		}
		if _, err := tbl.Add(ctx, rec); err != nil {
			return err
		}
		if err := appendEvents(ctx, tx, l.newEvent(lead.WorkspaceID, lead.ID, types.EventCreated, now)); err != nil {
			return err
		}
		result = AddLeadResult{Status: StatusCreated, Lead: lead}
		return nil
	})
	if err != nil {
		return AddLeadResult{}, err
	}
	l.logger.Debug("add lead", "status", result.Status, "lead", result.Lead.ID)
	return result, nil
}

// ListLeadsByBoard returns every lead of the board, most recently updated
// first.
func (l *Leads) ListLeadsByBoard(ctx context.Context, workspaceID string, board types.Board) ([]types.Lead, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	if !board.Valid() {
		return nil, types.Invalid("board", "unknown board "+string(board))
	}
	var leads []types.Lead
	err := l.store.View(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableLeads)
		if err != nil {
			return err
		}
		recs, err := tbl.Where(ctx, idxLeadsByStage, workspaceID, board)
		if err != nil {
			return err
		}
		leads, err = decodeAll[types.Lead](recs)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(leads, func(a, b types.Lead) int {
		return cmp.Compare(b.UpdatedAt, a.UpdatedAt)
	})
	return leads, nil
}

// GetLead returns the lead, or nil when it is absent or belongs to another
// workspace.
func (l *Leads) GetLead(ctx context.Context, workspaceID, leadID string) (*types.Lead, error) {
	var lead *types.Lead
	err := l.store.View(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableLeads)
		if err != nil {
			return err
		}
		var v types.Lead
		raw, err := getScoped(ctx, tbl, workspaceID, leadID, &v)
		if err != nil || raw == nil {
			return err
		}
		lead = &v
		return nil
	})
	return lead, err
}

// UpdateLead applies patch and returns the updated lead, or nil when the
// lead is absent or belongs to another workspace. updatedAt and
// lastTouchedAt are always refreshed. A change of stage, notes or priority
// appends one MOVED_STAGE, NOTE_UPDATED or PRIORITY_CHANGED event, in the
// same transaction as the write.
func (l *Leads) UpdateLead(ctx context.Context, workspaceID, leadID string, patch LeadPatch) (*types.Lead, error) {
	if patch.Board != nil && !patch.Board.Valid() {
		return nil, types.Invalid("board", "unknown board "+string(*patch.Board))
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, types.Invalid("priority", "unknown priority "+string(*patch.Priority))
	}

	var updated *types.Lead
	err := l.store.Update(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableLeads)
		if err != nil {
			return err
		}
		var prev types.Lead
		raw, err := getScoped(ctx, tbl, workspaceID, leadID, &prev)
		if err != nil || raw == nil {
			return err
		}

		now := l.nowMillis()
		next := applyPatch(prev, patch)
		next.UpdatedAt = now
		next.LastTouchedAt = now

		var events []types.ActivityEvent
		if next.StageID != prev.StageID {
			ev := l.newEvent(prev.WorkspaceID, prev.ID, types.EventMovedStage, now)
			ev.FromStageID = prev.StageID
			ev.ToStageID = next.StageID
			events = append(events, ev)
		}
		if next.Notes != prev.Notes {
			events = append(events, l.newEvent(prev.WorkspaceID, prev.ID, types.EventNoteUpdated, now))
		}
		if next.Priority != prev.Priority {
			events = append(events, l.newEvent(prev.WorkspaceID, prev.ID, types.EventPriorityChanged, now))
		}

		rec, err := overlay(raw, next, leadOptionalFields...)
		if err != nil {
			return err
		}
		if _, err := tbl.Put(ctx, rec); err != nil {
			return err
		}
		if err := appendEvents(ctx, tx, events...); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyPatch returns lead with the non-nil fields of patch applied. A
// stage that is blank after trimming leaves the stage unchanged.
func applyPatch(lead types.Lead, patch LeadPatch) types.Lead {
	if patch.Board != nil {
		lead.Board = *patch.Board
	}
	if patch.StageID != nil {
		if s := strings.TrimSpace(*patch.StageID); s != "" {
			lead.StageID = s
		}
	}
	if patch.Notes != nil {
		lead.Notes = *patch.Notes
	}
	if patch.Tags != nil {
		lead.Tags = types.NormalizeTags(*patch.Tags)
	}
	if patch.Priority != nil {
		lead.Priority = *patch.Priority
	}
	if patch.DisplayName != nil {
		lead.DisplayName = strings.TrimSpace(*patch.DisplayName)
	}
	if patch.AvatarURL != nil {
		lead.AvatarURL = *patch.AvatarURL
	}
	if patch.NextFollowUpAt != nil {
		lead.NextFollowUpAt = patch.NextFollowUpAt.Ptr()
	}
	if patch.ClearNextFollowUp {
		lead.NextFollowUpAt = nil
	}
	return lead
}

// MoveLeadStage moves the lead to toStageID. It is UpdateLead with only
// the stage patched.
func (l *Leads) MoveLeadStage(ctx context.Context, workspaceID, leadID, toStageID string) (*types.Lead, error) {
	return l.UpdateLead(ctx, workspaceID, leadID, LeadPatch{StageID: &toStageID})
}

// DeleteLead removes the lead together with all of its tasks and events.
// It reports false, without error, when the lead is absent or belongs to
// another workspace.
func (l *Leads) DeleteLead(ctx context.Context, workspaceID, leadID string) (bool, error) {
	deleted := false
	err := l.store.Update(ctx, func(tx types.Tx) error {
		leads, err := tx.Table(types.TableLeads)
		if err != nil {
			return err
		}
		var lead types.Lead
		raw, err := getScoped(ctx, leads, workspaceID, leadID, &lead)
		if err != nil || raw == nil {
			return err
		}

		for _, name := range []string{types.TableTasks, types.TableEvents} {
			tbl, err := tx.Table(name)
			if err != nil {
				return err
			}
			n, err := tbl.DeleteWhere(ctx, idxByWorkspaceLeadID, workspaceID, leadID)
			if err != nil {
				return err
			}
			l.logger.Debug("cascade delete", "table", name, "lead", leadID, "rows", n)
		}
		if err := leads.Delete(ctx, leadID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// ListDueFollowUps returns the leads whose follow-up date is at or before
// the given time, earliest first.
func (l *Leads) ListDueFollowUps(ctx context.Context, workspaceID string, before types.Millis) ([]types.Lead, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	var due []types.Lead
	err := l.store.View(ctx, func(tx types.Tx) error {
		tbl, err := tx.Table(types.TableLeads)
		if err != nil {
			return err
		}
		recs, err := tbl.Where(ctx, idxLeadsByFollowUp, workspaceID)
		if err != nil {
			return err
		}
		leads, err := decodeAll[types.Lead](recs)
		if err != nil {
			return err
		}
		for _, lead := range leads {
			if lead.NextFollowUpAt != nil && *lead.NextFollowUpAt <= before {
				due = append(due, lead)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(due, func(a, b types.Lead) int {
		return cmp.Compare(*a.NextFollowUpAt, *b.NextFollowUpAt)
	})
	return due, nil
}
