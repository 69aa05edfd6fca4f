package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"keeperstats/processor"
)

// WriteChartCSV writes both chart series as rows of
// series,timestamp,datetime,value. Series are "cumulative_profit" and
// "price".
func WriteChartCSV(w io.Writer, chart processor.Chart) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"series", "timestamp", "datetime", "value"}); err != nil {
		return err
	}
	write := func(series string, points []processor.ChartPoint) error {
		for _, p := range points {
			row := []string{
				series,
				strconv.FormatInt(p.Timestamp, 10),
				formatUnix(p.Timestamp),
				strconv.FormatFloat(p.Value, 'f', -1, 64),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write %s row: %w", series, err)
			}
		}
		return nil
	}
	if err := write("cumulative_profit", chart.CumulativeProfit); err != nil {
		return err
	}
	if err := write("price", chart.Price); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
