package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/debts"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

const debtsFile = "debts.csv"

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default config and an example debts file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized tally project at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")

	return cmd
}

func runInit(dir string, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	cfgPath := filepath.Join(dir, config.FileName)
	debtsPath := filepath.Join(dir, debtsFile)
	if !force {
		for _, p := range []string{cfgPath, debtsPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", p)
			}
		}
	}

	// Write tally.yaml.
	cfg := config.Default()
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write example debts.
	f, err := os.Create(debtsPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", debtsFile, err)
	}
	defer f.Close()

	if err := debts.WriteDebts(f, exampleDebts()); err != nil {
		return fmt.Errorf("writing %s: %w", debtsFile, err)
	}
	return nil
}

func exampleDebts() []model.Debt {
	usd := func(s string) money.Amount { return money.MustParse(s, 2) }
	return []model.Debt{
		{
			Creditor:       "Credit Card",
			Currency:       "USD",
			Balance:        usd("4500.00"),
			AnnualRate:     decimal.RequireFromString("21.99"),
			InterestType:   model.InterestCompound,
			MonthlyPayment: usd("200.00"),
		},
		{
			Creditor:       "Car Loan",
			Currency:       "USD",
			Balance:        usd("12000.00"),
			AnnualRate:     decimal.RequireFromString("6.5"),
			InterestType:   model.InterestSimple,
			MonthlyPayment: usd("350.00"),
		},
	}
}
