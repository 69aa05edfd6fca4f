// Package binance reads keeper trades and one minute klines from the Binance
// spot REST API.
package binance

import (
	"errors"
	"net/http"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"golang.org/x/time/rate"

	"keeperstats/config"
	"keeperstats/reader"
)

const pageLimit = 1000

// newClient builds a spot client with the configured endpoint and timeout.
func newClient(cfg *config.Config) *binance.Client {
	src := cfg.Source.Binance
	client := binance.NewClient(src.APIKey, src.SecretKey)
	client.HTTPClient = &http.Client{Timeout: cfg.Reader.Timeout}
	if src.BaseURL != "" {
		client.BaseURL = strings.TrimRight(src.BaseURL, "/")
	}
	return client
}

func newLimiter(cfg *config.Config) *rate.Limiter {
	rl := cfg.Reader.RateLimit
	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// IsRateLimited reports whether err is a Binance request weight or order
// rate rejection.
func IsRateLimited(err error) bool {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == -1003 || apiErr.Code == -1015
	}
	return strings.Contains(err.Error(), "429")
}

// classify marks API rejections other than rate limits as permanent so they
// are not retried. Rate limits are reported for symbol.
func classify(err error, symbol string) error {
	if err == nil {
		return nil
	}
	if IsRateLimited(err) {
		reader.ReportRateLimited("binance", symbol)
		return err
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return reader.Permanent(err)
	}
	return err
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
