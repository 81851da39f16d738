// Package crm provides the repositories of the CRM: leads with
// deduplication and stage auditing, tasks, the activity log and per-day
// outreach metrics.
//
// Every repository works on a types.Store and performs each operation in a
// single transaction. Operations that address a row by id within a
// workspace return nil (and no error) when the row is absent or belongs to
// another workspace, so callers cannot probe other workspaces.
package crm
