// Package writer renders reports, trade listings and price histories and
// ships them to local files or S3.
package writer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// GeneratedAtLayout formats the footer timestamp of text outputs.
const GeneratedAtLayout = "2006.01.02 15:04:05 MST"

var stableTokens = map[string]bool{"DAI": true, "USD": true, "USDT": true, "USDC": true}

var printer = message.NewPrinter(language.English)

// AmountFormatter formats quote token amounts with thousands separators,
// two decimals for dollar like tokens and four for everything else.
func AmountFormatter(token string) func(float64) string {
	token = strings.ToUpper(token)
	format := "%.4f %s"
	if stableTokens[token] {
		format = "%.2f %s"
	}
	return func(v float64) string {
		return printer.Sprintf(format, v, token)
	}
}

func generatedAt(now time.Time) string {
	return "Generated at: " + now.UTC().Format(GeneratedAtLayout)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Create opens path for writing. An empty path or "-" writes to stdout.
func Create(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output %s: %w", path, err)
	}
	return f, nil
}

func formatUnix(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}
