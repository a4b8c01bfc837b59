package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/smsguard/internal/model"
	"github.com/ppiankov/smsguard/internal/pipeline"
	"github.com/ppiankov/smsguard/internal/worker"
)

var (
	concurrency  int
	batchOutput  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze many messages from a file in parallel",
	Long: `Batch analyzes one message per line:
- Blank lines and lines starting with # are skipped
- Messages are analyzed concurrently on a worker pool
- Results are written as JSON lines in input order

Example:
  smsguard batch inbox.txt
  smsguard batch inbox.txt --concurrency 8 --output results.jsonl
  cat inbox.txt | smsguard batch - --no-lookup`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "-", "JSON lines output path (\"-\" for stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noLookup, "no-lookup", false, "skip the reputation service (local checks only)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noLookup {
		cfg.Reputation.Enabled = false
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	p, err := pipeline.NewPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  smsguard batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Lookups:      %v\n", cfg.Reputation.Enabled)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	out, closeOut, err := openOutput(batchOutput)
	if err != nil {
		return err
	}
	defer closeOut()

	if err := pipeline.NewRenderer(cfg.Output.Verbose).RenderBatch(out, results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	printBatchSummary(os.Stderr, results)
	return nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" || path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func printBatchSummary(w io.Writer, results []*worker.MessageResult) {
	counts := make(map[model.RiskLevel]int)
	failures := 0
	for _, r := range results {
		if r.Error != nil {
			failures++
			continue
		}
		counts[r.Result.RiskLevel]++
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Batch Complete\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Total:     %d messages\n", len(results))
	for _, level := range []model.RiskLevel{model.RiskFraud, model.RiskHigh, model.RiskMedium, model.RiskLow, model.RiskSafe} {
		fmt.Fprintf(w, "  %-9s  %d\n", string(level)+":", counts[level])
	}
	fmt.Fprintf(w, "  Failures:  %d\n", failures)
	fmt.Fprintf(w, "\n")
}
