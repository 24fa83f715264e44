package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var runJSON bool

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Emit the run report as JSON")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one full pipeline cycle",
	Long:  "Generates candidates, dispatches them through the approval policy, and\nrecords the run in the job log. Two consecutive failed runs escalate.",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	report, err := e.pipe.Run(cmd.Context())
	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if err != nil {
		return err
	}

	if runJSON {
		out, jerr := json.MarshalIndent(report, "", "  ")
		if jerr != nil {
			return jerr
		}
		fmt.Println(string(out))
		return nil
	}

	c := report.Counters
	fmt.Printf("%s: %d candidate(s): %d auto-executed (%d via grant), %d blocked, %d queued for approval\n",
		report.JobName, report.Candidates, c.AutoExecuted, c.GrantsUsed, c.Blocked, c.ApprovalQueued)
	return nil
}
