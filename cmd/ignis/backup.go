package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ignis/internal/paths"
	"github.com/mesh-intelligence/ignis/pkg/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and import full backups",
}

var (
	flagBackupOut     string
	flagBackupStdout  bool
	flagImportMode    string
	flagImportConfirm bool
	flagImportKeep    bool
)

func withEngine(fn func(ctx context.Context, engine *backup.Engine) error) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Detach()
	engine := backup.New(store,
		backup.WithLogger(logger),
		backup.WithApp(backup.AppInfo{
			Name:             backup.AppName,
			ExtensionVersion: Version,
			DBName:           store.Name(),
		}),
	)
	return fn(context.Background(), engine)
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every table to a backup file",
	Long: `Export writes a JSON snapshot of the whole database, every workspace
included, to ignis-backup-<timestamp>.json in the backup directory
(--out > IGNIS_BACKUP_DIR > <data-dir>/backups).`,
	Args: exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, engine *backup.Engine) error {
			out := cmd.OutOrStdout()
			if flagBackupStdout {
				env, err := engine.Export(ctx)
				if err != nil {
					return err
				}
				data, err := env.Marshal()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}

			dataDir, err := resolveDataDir()
			if err != nil {
				return err
			}
			dir, err := paths.ResolveBackupDir(flagBackupOut, dataDir)
			if err != nil {
				return fmt.Errorf("resolve backup dir: %w", err)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create backup dir: %w", err)
			}
			name, err := engine.ExportToFile(ctx, backup.DirSaver{Dir: dir})
			if err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			if flagJSON {
				return writeJSON(out, map[string]string{"file": path})
			}
			fmt.Fprintln(out, path)
			return nil
		})
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import a backup file",
	Long: `Import applies a backup in one transaction.

In merge mode (the default) rows are upserted and nothing is deleted; leads
are matched by board and username, and an existing lead keeps its stage
unless --keep-stage=false. Replace mode empties every table first and
requires --confirm-replace.

Example:
  ignis backup import ignis-backup-2024-06-10_09-00-00-000.json
  ignis backup import --mode replace --confirm-replace backup.json
  cat backup.json | ignis backup import -`,
	Args: exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read backup: %w", err)
		}

		opts := backup.Options{
			Mode:                  backup.Mode(flagImportMode),
			ConfirmReplace:        flagImportConfirm,
			KeepExistingLeadStage: &flagImportKeep,
		}
		return withEngine(func(ctx context.Context, engine *backup.Engine) error {
			res, err := engine.ImportJSON(ctx, data, opts)
			if err != nil {
				return err
			}
			return printImport(cmd.OutOrStdout(), res)
		})
	},
}

var backupValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a file is an ignis backup",
	Args:  exactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read backup: %w", err)
		}
		env, err := backup.Parse(data)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagJSON {
			return writeJSON(out, map[string]any{
				"exportedAt": env.ExportedAt,
				"app":        env.App,
				"tables":     env.TableNames(),
			})
		}
		fmt.Fprintf(out, "%s backup v%d exported %s by %s\n", env.Format, env.BackupVersion, env.ExportedAt, env.App.Name)
		for _, name := range env.TableNames() {
			fmt.Fprintf(out, "  %s: %d rows\n", name, len(env.Tables[name].Rows))
		}
		return nil
	},
}

func printImport(w io.Writer, res *backup.Result) error {
	if flagJSON {
		return writeJSON(w, res)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tINCOMING\tADDED\tUPDATED\tSKIPPED")
	for _, t := range res.Tables {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", t.Name, t.Incoming, t.Added, t.Updated, t.Skipped)
	}
	return tw.Flush()
}

func init() {
	backupExportCmd.Flags().StringVarP(&flagBackupOut, "out", "o", "", "backup directory")
	backupExportCmd.Flags().BoolVar(&flagBackupStdout, "stdout", false, "write the backup to stdout instead of a file")

	f := backupImportCmd.Flags()
	f.StringVarP(&flagImportMode, "mode", "m", string(backup.ModeMerge), "merge or replace")
	f.BoolVar(&flagImportConfirm, "confirm-replace", false, "allow replace mode to delete existing data")
	f.BoolVar(&flagImportKeep, "keep-stage", true, "keep the stage of leads that already exist")

	backupCmd.AddCommand(backupExportCmd, backupImportCmd, backupValidateCmd)
}
