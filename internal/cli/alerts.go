package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var alertsLimit int

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.Flags().IntVar(&alertsLimit, "limit", 20, "Maximum alerts to show")
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show recent alert events",
	RunE:  runAlerts,
}

func runAlerts(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	alerts, err := e.store.RecentAlerts(cmd.Context(), alertsLimit)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}
	if len(alerts) == 0 {
		fmt.Println("No alerts.")
		return nil
	}

	fmt.Printf("%-10s %-12s %-24s %-45s %s\n", "SEVERITY", "DOMAIN", "SOURCE", "TITLE", "CREATED")
	for _, a := range alerts {
		fmt.Printf("%-10s %-12s %-24s %-45s %s\n",
			a.Severity, a.Domain, a.Source, truncate(a.Title, 45),
			a.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
