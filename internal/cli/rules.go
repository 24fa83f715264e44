package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/config"
)

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesImportCmd)
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and import threshold rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all threshold rules",
	RunE:  runRulesList,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import rules from a YAML file",
	Long:  "Upserts every rule in the file, keyed by domain/metric/operator/threshold.\nA file with any invalid rule is rejected whole.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesImport,
}

func runRulesList(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	rules, err := e.store.ListRules(cmd.Context())
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	if len(rules) == 0 {
		fmt.Println("No rules configured.")
		return nil
	}

	fmt.Printf("%-12s %-30s %-14s %-10s %s\n", "DOMAIN", "METRIC", "CONDITION", "SEVERITY", "ENABLED")
	for _, r := range rules {
		fmt.Printf("%-12s %-30s %-14s %-10s %t\n",
			r.Domain, r.Metric, fmt.Sprintf("%s %g", r.Operator, r.Threshold), r.Severity, r.Enabled)
	}
	return nil
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	rules, err := config.LoadRulesFile(args[0])
	if err != nil {
		return err
	}
	for _, r := range rules {
		if err := e.store.UpsertRule(cmd.Context(), r); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", r.Domain, r.Metric, err)
		}
	}
	fmt.Printf("Imported %d rule(s).\n", len(rules))
	return nil
}
