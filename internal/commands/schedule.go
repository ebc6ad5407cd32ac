package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/amortization"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/debts"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

type scheduleOptions struct {
	creditor     string
	currency     string
	balance      string
	rate         string
	interestType string
	payment      string
	csv          bool
}

func newScheduleCommand(global *globalOptions) *cobra.Command {
	opts := &scheduleOptions{}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the month-by-month amortization schedule for one debt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runSchedule(cmd, global, cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.creditor, "creditor", "", "creditor name (for display)")
	cmd.Flags().StringVar(&opts.currency, "currency", "", "currency code (default from config)")
	cmd.Flags().StringVar(&opts.balance, "balance", "", "current balance (required)")
	cmd.Flags().StringVar(&opts.rate, "rate", "0", "annual interest rate in percent")
	cmd.Flags().StringVar(&opts.interestType, "type", string(model.InterestCompound), "interest type: simple or compound")
	cmd.Flags().StringVar(&opts.payment, "payment", "", "monthly payment (required)")
	cmd.Flags().BoolVar(&opts.csv, "csv", false, "write CSV instead of a table")
	_ = cmd.MarkFlagRequired("balance")
	_ = cmd.MarkFlagRequired("payment")

	return cmd
}

func runSchedule(cmd *cobra.Command, global *globalOptions, cfg *config.Config, opts *scheduleOptions) error {
	logger := global.logger(cmd, cfg)

	d, err := opts.debt(cfg)
	if err != nil {
		return err
	}

	s, err := amortization.BuildSchedule(d)
	if err != nil {
		if errors.Is(err, amortization.ErrNonConvergent) {
			return fmt.Errorf("cannot project payoff with this payment amount: %w", err)
		}
		return err
	}
	logger.Debug("built schedule", "creditor", d.Creditor, "months", s.Months(), "total_interest", s.TotalInterest.String())

	if verrs := amortization.Verify(s); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Error()
		}
		return fmt.Errorf("schedule failed verification: %s", strings.Join(msgs, "; "))
	}

	out := cmd.OutOrStdout()
	if opts.csv {
		return debts.WriteSchedule(out, s)
	}
	return printSchedule(out, d, s)
}

func (o *scheduleOptions) debt(cfg *config.Config) (model.Debt, error) {
	currency := strings.ToUpper(o.currency)
	if currency == "" {
		currency = cfg.DefaultCurrency
	}
	if currency == "" {
		return model.Debt{}, fmt.Errorf("no currency given and no default_currency configured")
	}
	scale, err := cfg.Scale(currency)
	if err != nil {
		return model.Debt{}, err
	}

	balance, err := money.NewFromString(o.balance, scale)
	if err != nil {
		return model.Debt{}, fmt.Errorf("--balance: %w", err)
	}
	payment, err := money.NewFromString(o.payment, scale)
	if err != nil {
		return model.Debt{}, fmt.Errorf("--payment: %w", err)
	}
	rate, err := decimal.NewFromString(strings.TrimSuffix(o.rate, "%"))
	if err != nil {
		return model.Debt{}, fmt.Errorf("--rate %q: %w", o.rate, err)
	}
	it, err := model.ParseInterestType(o.interestType)
	if err != nil {
		return model.Debt{}, fmt.Errorf("--type: %w", err)
	}

	return model.Debt{
		Creditor:       o.creditor,
		Currency:       currency,
		Balance:        balance,
		AnnualRate:     rate,
		InterestType:   it,
		MonthlyPayment: payment,
	}, nil
}

func printSchedule(w io.Writer, d model.Debt, s amortization.Schedule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tPAYMENT\tPRINCIPAL\tINTEREST\tBALANCE\t")
	for _, e := range s.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", e.PaymentNumber, e.Payment, e.Principal, e.Interest, e.Balance)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing schedule: %w", err)
	}

	share := money.PercentOf(s.TotalInterest, s.TotalPaid, money.DefaultPercentDecimals)
	_, err := fmt.Fprintf(w, "\n%d payments, total paid %s %s, total interest %s %s (%s%% of payments)\n",
		s.Months(), s.TotalPaid, d.Currency, s.TotalInterest, d.Currency, share.StringFixed(money.DefaultPercentDecimals))
	return err
}
