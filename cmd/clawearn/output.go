package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

// printf writes locale formatted output, grouping integer digits
func (a *app) printf(format string, args ...any) {
	a.printer.Fprintf(a.stdout, format, args...)
}

// usd renders a display amount with two decimals and thousands separators.
// Only used for balances; prices and sizes are printed exactly.
func (a *app) usd(d decimal.Decimal) string {
	return a.printer.Sprintf("$%.2f", d.InexactFloat64())
}

// table writes aligned rows to stdout
func (a *app) table(header []string, rows [][]string) error {
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func nullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}
