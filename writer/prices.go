package writer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"keeperstats/models"
)

// WritePriceHistory writes one JSON object per price point, the format read
// by the file price source.
func WritePriceHistory(w io.Writer, prices []models.PricePoint) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, p := range prices {
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encode price at %d: %w", p.Timestamp, err)
		}
	}
	return bw.Flush()
}
