package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixOrphans bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Audit the backup index against the bucket and the database",
	Long:  `Checks that every indexed backup still has its snapshot, that no stray objects sit under the backup prefix, and that the backups table has the expected columns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, true)
	},
}

// objectsCmd represents the integrity objects command
var objectsCmd = &cobra.Command{
	Use:   "objects",
	Short: "Check snapshot objects and optionally remove orphans",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, false)
	},
}

// schemaCmd represents the integrity schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the backups table schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), false, true)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(objectsCmd, schemaCmd)

	objectsCmd.Flags().BoolVar(&fixOrphans, "fix", false, "Remove orphan objects")
}

func runIntegrityChecks(ctx context.Context, runObjects, runSchema bool) error {
	rt, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	logg := rt.logger
	defer logg.Sync()
	svc := rt.audit

	if runObjects {
		logg.Info("Checking snapshot objects...")
		report, err := svc.CheckObjects(ctx)
		if err != nil {
			return fmt.Errorf("object check failed: %w", err)
		}

		if len(report.Missing) == 0 && len(report.Orphans) == 0 {
			logg.Info("Objects are intact.", zap.Int("checked", report.Checked))
		}
		if len(report.Missing) > 0 {
			logg.Warn("Indexed backups without a snapshot", zap.Strings("missing", report.Missing))
		}
		if len(report.Orphans) > 0 {
			logg.Warn("Orphan objects detected", zap.Strings("orphans", report.Orphans))

			if fixOrphans {
				logg.Info("Removing orphan objects...")
				if err := svc.RemoveOrphans(ctx, report.Orphans); err != nil {
					return fmt.Errorf("failed to remove orphans: %w", err)
				}
				logg.Info("Orphans removed successfully.")
			} else {
				logg.Info("Run integrity objects with --fix to remove orphan objects.")
			}
		}
	}

	if runSchema {
		logg.Info("Checking backups table schema...")
		report, err := svc.CheckSchema()
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		if report.Matched {
			logg.Info("Schema matches the index model.", zap.String("table", report.Table))
		} else {
			if len(report.MissingColumns) > 0 {
				logg.Warn("Missing Columns", zap.String("table", report.Table), zap.Strings("columns", report.MissingColumns))
			}
			for _, e := range report.Errors {
				logg.Error("Inspection Error", zap.String("error", e))
			}
		}
	}
	return nil
}
