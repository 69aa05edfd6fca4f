package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"keeperstats/models"
)

// WriteTradesText writes the trade history table of a base/quote pair.
func WriteTradesText(w io.Writer, trades []models.TradeRecord, base, quote string, now time.Time) error {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)

	t := newTable(
		[]string{"Date/time", "Type", "Price", "Amount in " + base, "Value in " + quote},
		[]align{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
	for _, tr := range trades {
		t.add(
			tr.Time().Format(models.ListingTimeLayout),
			tr.Side(),
			tr.Price.StringFixed(8),
			tr.Amount.StringFixed(8),
			tr.Money.StringFixed(8),
		)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Trade history on the %s-%s pair:\n\n", base, quote)
	if err := t.render(&sb); err != nil {
		return err
	}
	fmt.Fprintf(&sb, "\nBuy  = Somebody bought %s from the keeper\n", quote)
	fmt.Fprintf(&sb, "Sell = Somebody sold %s to the keeper\n", quote)
	fmt.Fprintf(&sb, "\nNumber of trades: %d\n", len(trades))
	sb.WriteString(generatedAt(now) + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteTradesJSON writes trades as an indented JSON listing that the file
// trade source can read back.
func WriteTradesJSON(w io.Writer, trades []models.TradeRecord) error {
	listed := make([]models.ListedTrade, 0, len(trades))
	for _, t := range trades {
		listed = append(listed, t.Listed())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	if err := enc.Encode(listed); err != nil {
		return fmt.Errorf("encode trades: %w", err)
	}
	return nil
}
