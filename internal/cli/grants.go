package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(grantsCmd)
	grantsCmd.AddCommand(grantsListCmd)
	grantsCmd.AddCommand(grantsRevokeCmd)
}

var grantsCmd = &cobra.Command{
	Use:   "grants",
	Short: "Inspect and revoke standing grants",
}

var grantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List grants, active and revoked",
	RunE:  runGrantsList,
}

var grantsRevokeCmd = &cobra.Command{
	Use:   "revoke <action-key>",
	Short: "Deactivate a grant",
	Long:  "Deactivates the grant for an action key. The next matching yellow-tier\ncandidate is blocked and queued for approval again.",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrantsRevoke,
}

func runGrantsList(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	grants, err := e.pipe.Grants.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list grants: %w", err)
	}
	if len(grants) == 0 {
		fmt.Println("No grants.")
		return nil
	}

	fmt.Printf("%-50s %-8s %-38s %s\n", "ACTION KEY", "ACTIVE", "SOURCE APPROVAL", "APPROVED")
	for _, g := range grants {
		fmt.Printf("%-50s %-8t %-38s %s\n",
			g.ActionKey,
			g.Active,
			g.SourceApprovalID,
			g.ApprovedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return nil
}

func runGrantsRevoke(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.pipe.Grants.Revoke(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Revoked %s\n", args[0])
	return nil
}
