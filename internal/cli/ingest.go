package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/store"
)

var (
	ingestDomain string
	ingestMetric string
	ingestValue  float64
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestDomain, "domain", "", "Operational domain (e.g. work-ops, finance, home)")
	ingestCmd.Flags().StringVar(&ingestMetric, "metric", "", "Metric name")
	ingestCmd.Flags().Float64Var(&ingestValue, "value", 0, "Observed value")
	ingestCmd.MarkFlagRequired("domain")
	ingestCmd.MarkFlagRequired("metric")
	ingestCmd.MarkFlagRequired("value")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Record a metric observation",
	Long:  "Writes a new snapshot for the domain carrying the given metric merged\nover the domain's previous snapshot, so other metrics stay visible to\nthe evaluator.",
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()

	metrics := map[string]float64{}
	prev, err := e.store.LatestSnapshot(ctx, ingestDomain)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("read previous snapshot: %w", err)
	}
	if err == nil {
		for name, value := range prev.Metrics {
			metrics[name] = value
		}
	}
	metrics[ingestMetric] = ingestValue

	if err := e.store.PutSnapshot(ctx, ingestDomain, metrics, time.Now().UTC()); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	fmt.Printf("%s/%s = %g\n", ingestDomain, ingestMetric, ingestValue)
	return nil
}
