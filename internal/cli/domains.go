package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/smsguard/internal/model"
	"github.com/ppiankov/smsguard/internal/pipeline"
	"github.com/ppiankov/smsguard/internal/reputation"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Query the domain reputation table",
}

var domainsCheckCmd = &cobra.Command{
	Use:   "check <domain|url>...",
	Short: "Classify domains against the local reputation table",
	Long: `Check prints how the local domain table classifies each argument:
official, shortener, impostor, numeric, malformed or unclassified.

With --whois each registrable domain is also looked up in WHOIS and its
registration age printed. Registration data is informational and never
changes a verdict.

Example:
  smsguard domains check ptt-kargo.com giris.isbank.com.tr https://bit.ly/x
  smsguard domains check --whois ptt-kargo-takip.com`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		table, err := reputation.NewTable(&cfg.Domains)
		if err != nil {
			return fmt.Errorf("build domain table: %w", err)
		}

		var inspector *reputation.Inspector
		if domainsWhois {
			inspector = reputation.NewInspector(domainsWhoisTimeout)
		}

		renderer := pipeline.NewRenderer(cfg.Output.Verbose)
		out := cmd.OutOrStdout()
		for _, arg := range args {
			verdict := classifyArg(table, arg)
			renderer.RenderDomain(out, arg, verdict)
			if inspector == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), domainsWhoisTimeout)
			reg, err := inspector.Inspect(ctx, verdict)
			cancel()
			if err != nil {
				slog.Debug("whois lookup failed", "domain", verdict.Domain, "error", err)
			}
			renderer.RenderRegistration(out, reg)
		}
		return nil
	},
}

func classifyArg(table *reputation.Table, arg string) model.DomainVerdict {
	if strings.Contains(arg, "://") {
		return table.ClassifyURL(arg)
	}
	return table.Classify(arg)
}

var (
	domainsWhois        bool
	domainsWhoisTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(domainsCmd)
	domainsCmd.AddCommand(domainsCheckCmd)

	domainsCheckCmd.Flags().BoolVar(&domainsWhois, "whois", false, "Look up registration age via WHOIS (network)")
	domainsCheckCmd.Flags().DurationVar(&domainsWhoisTimeout, "whois-timeout", 10*time.Second, "Timeout per WHOIS lookup")
}
