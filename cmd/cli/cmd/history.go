package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/size-analysis/internal/repository"
	"github.com/size-analysis/pkg/model"
	"github.com/size-analysis/pkg/writer"
)

var (
	// History command flags
	historyStatus    string
	historySource    string
	historyLimit     int
	historyOffset    int
	historyOlderThan time.Duration
	historyOutput    string
)

// historyCmd groups the run history commands
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded analysis runs",
	Long: `Inspect the analysis runs recorded in the history database.

The database is configured in the database section of the configuration
file and must be enabled.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyReportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Print the stored report of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryReport,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old runs",
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyReportCmd, historyPruneCmd)

	historyListCmd.Flags().StringVar(&historyStatus, "status", "", "Filter by status: pending, running, completed, failed")
	historyListCmd.Flags().StringVar(&historySource, "source", "", "Filter by source")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", repository.DefaultListLimit, "Maximum runs to list")
	historyListCmd.Flags().IntVar(&historyOffset, "offset", 0, "Runs to skip")

	historyReportCmd.Flags().StringVarP(&historyOutput, "output", "o", "-", "Output file, - for stdout")

	historyPruneCmd.Flags().DurationVar(&historyOlderThan, "older-than", 30*24*time.Hour, "Delete runs created before this age")
}

func parseRunStatus(name string) (*model.RunStatus, error) {
	if name == "" {
		return nil, nil
	}
	for st := model.RunStatusPending; st <= model.RunStatusFailed; st++ {
		if st.String() == name {
			return &st, nil
		}
	}
	return nil, fmt.Errorf("unknown run status %q", name)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	status, err := parseRunStatus(historyStatus)
	if err != nil {
		return err
	}
	svc, err := newService(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer svc.Close()

	runs, err := svc.ListRuns(cmd.Context(), repository.ListFilter{
		Status: status,
		Source: historySource,
		Limit:  historyLimit,
		Offset: historyOffset,
	})
	if err != nil {
		return err
	}
	return writer.NewPrettyJSONWriter[[]*model.Run]().Write(runs, cmd.OutOrStdout())
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer svc.Close()

	run, err := svc.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return writer.NewPrettyJSONWriter[*model.Run]().Write(run, cmd.OutOrStdout())
}

func runHistoryReport(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.Report(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if historyOutput == "-" {
		_, err = cmd.OutOrStdout().Write(append(report, '\n'))
		return err
	}
	return os.WriteFile(historyOutput, report, 0644)
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	svc, err := newService(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := svc.PruneRuns(cmd.Context(), historyOlderThan)
	if err != nil {
		return err
	}
	GetLogger().Info("Deleted %d runs older than %v", n, historyOlderThan)
	return nil
}
