package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	statusWindow time.Duration
	statusJSON   bool
)

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().DurationVar(&statusWindow, "window", 24*time.Hour, "Trailing window for health stats")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Emit the status report as JSON")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show job health over a trailing window",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	report := e.pipe.Status(cmd.Context(), statusWindow)
	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	if statusJSON {
		out, jerr := json.MarshalIndent(report, "", "  ")
		if jerr != nil {
			return jerr
		}
		fmt.Println(string(out))
		return nil
	}

	h := report.Health
	if h == nil || h.Total == 0 {
		fmt.Printf("%s: no runs in the last %s\n", report.JobName, statusWindow)
		return nil
	}

	fmt.Printf("Job:       %s\n", report.JobName)
	fmt.Printf("Window:    %s (%d runs)\n", statusWindow, h.Total)
	if h.SuccessRate != nil {
		fmt.Printf("Success:   %.1f%%\n", *h.SuccessRate)
	}
	if h.AvgDurationMs != nil {
		fmt.Printf("Avg time:  %dms\n", *h.AvgDurationMs)
	}
	fmt.Printf("Failures:  %d consecutive\n", h.ConsecutiveFailures)
	if h.LastRun != nil {
		fmt.Printf("Last run:  %s (%s)\n", h.LastRun.FinishedAt.Local().Format("2006-01-02 15:04:05"), h.LastRun.Status)
	}
	if h.NextDueAt != nil {
		fmt.Printf("Next due:  %s\n", h.NextDueAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}
