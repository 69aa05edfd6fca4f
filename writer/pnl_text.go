package writer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"keeperstats/processor"
)

// WritePnLText writes the day by day PnL report for a base/quote market.
// Amounts are in the quote token.
func WritePnLText(w io.Writer, report processor.Report, base, quote string, now time.Time) error {
	amount := AmountFormatter(quote)

	t := newTable(
		[]string{"Day", "# trades", "Volume", "Bought", "Sold", "Net bought", "Cumulative net bought", "Profit", "Remarks"},
		[]align{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
	for _, d := range report.Days {
		profit := "n/a"
		if d.ProfitCalculated {
			profit = amount(d.Profit)
		}
		remark := ""
		if d.Incomplete {
			remark = "*"
		}
		t.add(
			d.Day.Format("2006-01-02"),
			fmt.Sprint(d.TradeCount),
			amount(d.Volume.InexactFloat64()),
			amount(d.Bought.InexactFloat64()),
			amount(d.Sold.InexactFloat64()),
			amount(d.NetBought.InexactFloat64()),
			amount(d.CumulativeNetBought.InexactFloat64()),
			profit,
			remark,
		)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "PnL report for %s/%s market-making:\n\n", strings.ToUpper(base), strings.ToUpper(quote))
	if err := t.render(&sb); err != nil {
		return err
	}
	sb.WriteString("\n")
	for _, c := range report.Caveats {
		sb.WriteString(c + "\n")
	}
	if report.ProfitCalculated {
		sb.WriteString("\nRemarks:\n" + processor.CaveatIncomplete + "\n")
	}
	fmt.Fprintf(&sb, "\nTotal number of trades: %d\n", report.TradeCount)
	fmt.Fprintf(&sb, "Total volume: %s\n", amount(report.Volume.InexactFloat64()))
	if report.ProfitCalculated {
		fmt.Fprintf(&sb, "Total profit: %s\n", amount(report.Profit))
	}
	sb.WriteString("\n" + generatedAt(now) + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
