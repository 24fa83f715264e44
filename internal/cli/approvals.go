package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/approval"
	"github.com/opsdeck/opsdeck/internal/model"
)

func init() {
	rootCmd.AddCommand(approvalsCmd)
	approvalsCmd.AddCommand(approvalsListCmd)
	approvalsCmd.AddCommand(approvalsApproveCmd)
	approvalsCmd.AddCommand(approvalsRejectCmd)
}

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Inspect and decide pending approvals",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending approval items",
	RunE:  runApprovalsList,
}

var approvalsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending item",
	Long:  "Approves a pending item. Approving a yellow-tier item also creates a\nreusable grant for its action key; red-tier approvals never do.",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprovalsApprove,
}

var approvalsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending item",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprovalsReject,
}

func runApprovalsList(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	items, err := e.pipe.Queue.ListPending(cmd.Context())
	if err != nil {
		return fmt.Errorf("list approvals: %w", err)
	}
	if len(items) == 0 {
		fmt.Println("No pending approvals.")
		return nil
	}

	fmt.Printf("%-38s %-8s %-12s %-40s %s\n", "ID", "TIER", "DOMAIN", "TITLE", "CREATED")
	for _, item := range items {
		fmt.Printf("%-38s %-8s %-12s %-40s %s\n",
			item.ID,
			item.Tier,
			item.Domain,
			truncate(item.Title, 40),
			item.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return nil
}

func runApprovalsApprove(cmd *cobra.Command, args []string) error {
	return decide(cmd, args[0], approval.Approve)
}

func runApprovalsReject(cmd *cobra.Command, args []string) error {
	return decide(cmd, args[0], approval.Reject)
}

func decide(cmd *cobra.Command, id string, decision approval.Decision) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	item, err := e.pipe.Queue.Decide(cmd.Context(), id, decision)
	if err != nil {
		return err
	}

	fmt.Printf("%s %q (%s)\n", pastTense(decision), item.Title, item.ID)
	if decision == approval.Approve && item.Tier == model.TierYellow {
		fmt.Printf("Granted %s for future runs.\n", item.ActionKey)
	}
	return nil
}

func pastTense(d approval.Decision) string {
	if d == approval.Approve {
		return "Approved"
	}
	return "Rejected"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
