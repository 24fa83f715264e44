package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var generateJSON bool

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Emit candidates as JSON")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Evaluate thresholds and emit alerts plus action candidates",
	Long:  "Runs the evaluator against the latest snapshots, appends one alert per\nviolation, and prints the resulting action candidates. Does not dispatch.",
	RunE:  runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.pipe.Generate(cmd.Context())
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(os.Stderr, "warning: alert write failed for %s/%s: %v\n", f.Rule.Domain, f.Rule.Metric, f.Err)
	}

	if generateJSON {
		out, err := json.MarshalIndent(result.Candidates, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(result.Candidates) == 0 {
		fmt.Println("No threshold violations.")
		return nil
	}
	fmt.Printf("%-12s %-30s %-10s %10s  %s\n", "DOMAIN", "METRIC", "SEVERITY", "VALUE", "RULE")
	for _, c := range result.Candidates {
		fmt.Printf("%-12s %-30s %-10s %10g  %s %g\n",
			c.Domain, c.Metric, c.Severity, c.Value, c.Operator, c.Threshold)
	}
	return nil
}
