package reader

import (
	"strings"

	"keeperstats/logger"
)

// ReportRateLimited counts an exchange rate limit rejection and emits it as
// a CloudWatch counter.
func ReportRateLimited(exchange, symbol string) {
	exchange = strings.ToLower(exchange)
	component := exchange + "_reader"
	fields := logger.Fields{"exchange": exchange, "symbol": symbol}

	entry := logger.GetLogger().WithComponent(component)
	entry.LogMetric(component, "rate_limit_exceeded", int64(1), "counter", fields)
	entry.WithFields(fields).Warn("rate limit exceeded")
}
