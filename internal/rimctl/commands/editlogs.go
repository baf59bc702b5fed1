package commands

import (
	"context"
	"fmt"
	"io"

	"rim/internal/db"
	"rim/internal/editlogs"
	"rim/internal/logger"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
)

const modelFlag = "model"

var repairFlags = map[string]cobraflags.Flag{
	modelFlag: &cobraflags.StringFlag{
		Name:  modelFlag,
		Value: "",
		Usage: "Only repair entries of this model",
	},
}

func newEditLogsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editlogs",
		Short: "Maintain the edit-log collection",
	}
	cmd.AddCommand(newRepairCommand())
	cmd.AddCommand(newBackfillWhoCommand())
	return cmd
}

func newRepairCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Remove representation noise from stored update diffs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, closeDB, err := connect()
			if err != nil {
				return err
			}
			defer closeDB()

			store := editlogs.NewMongoStore(db.EditLogs)
			report, err := editlogs.RepairBatch(context.Background(), store, repairFlags[modelFlag].GetString(), dryRun, logger.Component(log, "repair"))
			if err != nil {
				return err
			}

			printRecordErrors(cmd.ErrOrStderr(), report.Errors)
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, repaired %d, emptied %d, errors %d%s\n",
				report.Scanned, report.Repaired, report.Emptied, len(report.Errors), dryRunSuffix(dryRun))
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, repairFlags)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	return cmd
}

func newBackfillWhoCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "backfill-who",
		Short: "Set whoID on entries that only carry who.id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, closeDB, err := connect()
			if err != nil {
				return err
			}
			defer closeDB()

			store := editlogs.NewMongoStore(db.EditLogs)
			report, err := editlogs.BackfillWhoID(context.Background(), store, dryRun)
			if err != nil {
				return err
			}

			printRecordErrors(cmd.ErrOrStderr(), report.Errors)
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, updated %d, skipped %d, errors %d%s\n",
				report.Scanned, report.Updated, report.Skipped, len(report.Errors), dryRunSuffix(dryRun))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing")
	return cmd
}

func printRecordErrors(w io.Writer, errs []editlogs.RecordError) {
	for _, e := range errs {
		fmt.Fprintln(w, e.Error())
	}
}

func dryRunSuffix(dryRun bool) string {
	if dryRun {
		return " (dry run)"
	}
	return ""
}
