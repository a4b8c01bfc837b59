package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/smsguard/internal/llm"
	"github.com/ppiankov/smsguard/internal/model"
	"github.com/ppiankov/smsguard/internal/pipeline"
)

var (
	inputFile string
	htmlInput bool
	outJSON   string
	noLookup  bool
	timeout   time.Duration
	explain   bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [message|-]",
	Short: "Analyze one message",
	Long: `Analyze scores a single text message and prints the verdict with its reasons.

The message is taken from the arguments, from --file, or from stdin ("-").
Links are checked against the domain table and, when an API key is set
(GOOGLE_SAFE_BROWSING_API_KEY), against Google Safe Browsing.

Example:
  smsguard analyze "Hesabiniz askiya alindi, hemen dogrulayin: bit.ly/x"
  smsguard analyze --file message.txt --json result.json
  pbpaste | smsguard analyze - --no-lookup
  smsguard analyze --html --file mail.html --explain`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&inputFile, "file", "f", "", "read the message from a file (\"-\" for stdin)")
	analyzeCmd.Flags().BoolVar(&htmlInput, "html", false, "treat input as HTML (visible text and link targets)")
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "write the result as JSON to a path (\"-\" for stdout)")
	analyzeCmd.Flags().BoolVar(&noLookup, "no-lookup", false, "skip the reputation service (local checks only)")
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&explain, "explain", false, "add an LLM explanation (requires llm.provider)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	message, err := readInput(args, inputFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noLookup {
		cfg.Reputation.Enabled = false
	}

	opts, err := explainerOptions(cfg)
	if err != nil {
		return err
	}

	p, err := pipeline.NewPipeline(cfg, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var result *model.AnalysisResult
	if htmlInput {
		result, err = p.AnalyzeHTML(ctx, message)
	} else {
		result, err = p.Analyze(ctx, message)
	}
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	renderer := pipeline.NewRenderer(cfg.Output.Verbose)
	if outJSON != "" {
		if err := renderer.RenderJSON(result, outJSON); err != nil {
			return err
		}
		if outJSON == "-" {
			return nil
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
		}
	}

	renderer.RenderSummary(cmd.OutOrStdout(), result)
	return nil
}

func explainerOptions(cfg *model.Config) ([]pipeline.Option, error) {
	if !explain {
		return nil, nil
	}
	if cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("--explain requires an LLM provider (set llm.provider or SMSGUARD_LLM_PROVIDER)")
	}

	explainer, err := llm.NewExplainer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
	if err != nil {
		return nil, fmt.Errorf("init explainer: %w", err)
	}
	return []pipeline.Option{pipeline.WithExplainer(explainer)}, nil
}

// readInput resolves the message from --file, "-" or the arguments
func readInput(args []string, file string, stdin io.Reader) (string, error) {
	switch {
	case file == "-" || (file == "" && len(args) == 1 && args[0] == "-"):
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read message file: %w", err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", fmt.Errorf("no message given: pass it as an argument, with --file, or \"-\" for stdin")
	}
}
