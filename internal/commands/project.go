package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/cache"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/debts"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
	"github.com/cleared-dev/tally/internal/payoff"
)

type projectOptions struct {
	debtsPath string
	start     string
	json      bool
}

func newProjectCommand(global *globalOptions) *cobra.Command {
	opts := &projectOptions{}

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project months remaining, payoff date, and interest for every debt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runProject(cmd, global, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.debtsPath, "debts", debtsFile, "debts CSV file")
	cmd.Flags().StringVar(&opts.start, "start", "", "projection start date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "write JSON instead of a table")

	return cmd
}

// projectRow is the JSON form of one projected debt.
type projectRow struct {
	Creditor   string            `json:"creditor"`
	Currency   string            `json:"currency"`
	Balance    money.Amount      `json:"balance"`
	Projection payoff.Projection `json:"projection"`
}

func runProject(cmd *cobra.Command, global *globalOptions, cfg *config.Config, opts *projectOptions) error {
	ctx := cmd.Context()
	logger := global.logger(cmd, cfg)

	start, err := parseStart(opts.start)
	if err != nil {
		return err
	}

	ds, err := debts.Load(opts.debtsPath, cfg)
	if err != nil {
		return err
	}

	store, err := cache.Open(cfg.CacheOptions())
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	projector := payoff.NewProjector(store, logger, payoff.WithConcurrency(cfg.Projection.Concurrency))
	projections, err := projector.ProjectAll(ctx, ds, start)
	if err != nil {
		return err
	}
	logger.Debug("projected debts", "count", len(ds), "start", start.Format(time.DateOnly))

	summaries, err := payoff.Summarize(ds, projections)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.json {
		rows := make([]projectRow, len(ds))
		for i, d := range ds {
			rows[i] = projectRow{Creditor: d.Creditor, Currency: d.Currency, Balance: d.Balance, Projection: projections[i]}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return printProjections(out, ds, projections, summaries)
}

func parseStart(s string) (time.Time, error) {
	if s == "" {
		y, m, d := time.Now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--start %q: expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

func printProjections(w io.Writer, ds []model.Debt, projections []payoff.Projection, summaries []payoff.CurrencySummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREDITOR\tCURRENCY\tBALANCE\tSHARE\tMONTHS\tPAYOFF\tINTEREST\tNOTE")

	for _, cs := range summaries {
		share := 0
		for i, d := range ds {
			if d.Currency != cs.Currency {
				continue
			}
			pct := cs.Shares[share].Percent.StringFixed(money.DefaultPercentDecimals) + "%"
			share++

			p := projections[i]
			if p.Converged() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t\n",
					d.Creditor, d.Currency, d.Balance, pct, p.Months, p.PayoffDate.Format(time.DateOnly), p.TotalInterest)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t-\t-\t-\t%s: %s\n",
				d.Creditor, d.Currency, d.Balance, pct, noteFor(p.Status), p.Reason)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing projections: %w", err)
	}

	for _, cs := range summaries {
		fmt.Fprintf(w, "\n%s: balance %s, projected interest %s", cs.Currency, cs.TotalBalance, cs.TotalInterest)
		if !cs.LatestPayoff.IsZero() {
			fmt.Fprintf(w, ", debt-free by %s", cs.LatestPayoff.Format(time.DateOnly))
		}
		if n := cs.NonConvergent + cs.Invalid; n > 0 {
			fmt.Fprintf(w, " (%d debt(s) without a projection)", n)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func noteFor(s payoff.Status) string {
	if s == payoff.StatusNonConvergent {
		return "cannot project payoff with this payment amount"
	}
	return "invalid debt"
}
