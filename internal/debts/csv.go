// Package debts reads debt snapshots from CSV and writes schedules back out.
package debts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/amortization"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/money"
)

// Header is the CSV header for debts.csv.
const Header = "creditor,currency,balance,annual_rate,interest_type,monthly_payment"

// ScheduleHeader is the CSV header written by WriteSchedule.
const ScheduleHeader = "payment_number,payment,principal,interest,balance"

const (
	numFields   = 6
	colCreditor = 0
	colCurrency = 1
	colBalance  = 2
	colRate     = 3
	colType     = 4
	colPayment  = 5
)

// ScaleResolver maps a currency code to the number of decimal places its
// amounts carry.
type ScaleResolver interface {
	Scale(currency string) (int32, error)
}

// Load reads a debts.csv file from disk.
func Load(path string, scales ScaleResolver) ([]model.Debt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening debts: %w", err)
	}
	defer f.Close()

	ds, err := ReadDebts(f, scales)
	if err != nil {
		return nil, fmt.Errorf("reading debts %s: %w", path, err)
	}
	return ds, nil
}

// ReadDebts reads all debts from a debts.csv reader.
func ReadDebts(r io.Reader, scales ScaleResolver) ([]model.Debt, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading debts CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	// Skip header row.
	var ds []model.Debt
	for i, rec := range records[1:] {
		d, err := UnmarshalDebt(rec, scales)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		ds = append(ds, d)
	}
	return ds, nil
}

// WriteDebts writes debts to a debts.csv writer (including header).
func WriteDebts(w io.Writer, ds []model.Debt) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, d := range ds {
		if err := cw.Write(MarshalDebt(d)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalDebt converts a Debt to a CSV row.
func MarshalDebt(d model.Debt) []string {
	row := make([]string, numFields)
	row[colCreditor] = d.Creditor
	row[colCurrency] = d.Currency
	row[colBalance] = d.Balance.String()
	row[colRate] = d.AnnualRate.String()
	row[colType] = string(d.InterestType)
	row[colPayment] = d.MonthlyPayment.String()
	return row
}

// UnmarshalDebt converts a CSV row to a Debt, taking the amount scale from
// the row's currency.
func UnmarshalDebt(record []string, scales ScaleResolver) (model.Debt, error) {
	if len(record) != numFields {
		return model.Debt{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	creditor := strings.TrimSpace(record[colCreditor])
	if creditor == "" {
		return model.Debt{}, fmt.Errorf("creditor is empty")
	}

	currency := strings.ToUpper(strings.TrimSpace(record[colCurrency]))
	scale, err := scales.Scale(currency)
	if err != nil {
		return model.Debt{}, fmt.Errorf("debt %s: %w", creditor, err)
	}

	balance, err := money.NewFromString(strings.TrimSpace(record[colBalance]), scale)
	if err != nil {
		return model.Debt{}, fmt.Errorf("parsing balance %q: %w", record[colBalance], err)
	}

	rate, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(record[colRate]), "%"))
	if err != nil {
		return model.Debt{}, fmt.Errorf("parsing annual_rate %q: %w", record[colRate], err)
	}

	it, err := model.ParseInterestType(record[colType])
	if err != nil {
		return model.Debt{}, fmt.Errorf("parsing interest_type: %w", err)
	}

	payment, err := money.NewFromString(strings.TrimSpace(record[colPayment]), scale)
	if err != nil {
		return model.Debt{}, fmt.Errorf("parsing monthly_payment %q: %w", record[colPayment], err)
	}

	return model.Debt{
		Creditor:       creditor,
		Currency:       currency,
		Balance:        balance,
		AnnualRate:     rate,
		InterestType:   it,
		MonthlyPayment: payment,
	}, nil
}

// WriteSchedule writes a schedule as CSV (including header), amounts fixed
// at the schedule's scale.
func WriteSchedule(w io.Writer, s amortization.Schedule) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(ScheduleHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range s.Entries {
		row := []string{
			strconv.Itoa(e.PaymentNumber),
			e.Payment.String(),
			e.Principal.String(),
			e.Interest.String(),
			e.Balance.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
