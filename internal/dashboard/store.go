package dashboard

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// history keeps the newest limit items. It is safe for concurrent use.
type history[T any] struct {
	mu    sync.RWMutex
	items []T
	limit int
}

func newHistory[T any](limit int) *history[T] {
	if limit <= 0 {
		limit = 200
	}
	return &history[T]{limit: limit}
}

func (h *history[T]) add(item T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, item)
	if len(h.items) > h.limit {
		h.items = append([]T(nil), h.items[len(h.items)-h.limit:]...)
	}
}

func (h *history[T]) snapshot() []T {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]T, len(h.items))
	copy(out, h.items)
	return out
}

// reportSummary describes one report computed by the API.
type reportSummary struct {
	ID               string    `json:"id"`
	GeneratedAt      time.Time `json:"generated_at"`
	Pair             string    `json:"pair"`
	TradeCount       int       `json:"trade_count"`
	Days             int       `json:"days"`
	Profit           *float64  `json:"profit"`
	IncompleteDays   int       `json:"incomplete_days"`
	VwapMinutes      int       `json:"vwap_minutes"`
	PricePointsCount int       `json:"price_points"`
}

type logRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// logStore is a logrus hook feeding recent log lines to /api/v1/logs.
// Hooks cannot be detached from a logger, so close only mutes it.
type logStore struct {
	*history[logRecord]
	muted atomic.Bool
}

func newLogStore(limit int) *logStore {
	return &logStore{history: newHistory[logRecord](limit)}
}

func (s *logStore) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (s *logStore) Fire(entry *logrus.Entry) error {
	if s.muted.Load() {
		return nil
	}

	record := logRecord{Timestamp: entry.Time, Level: entry.Level.String(), Message: entry.Message}
	for k, v := range entry.Data {
		if k == "component" {
			record.Component, _ = v.(string)
			continue
		}
		if record.Fields == nil {
			record.Fields = make(map[string]interface{}, len(entry.Data))
		}
		switch val := v.(type) {
		case error:
			record.Fields[k] = val.Error()
		case fmt.Stringer:
			record.Fields[k] = val.String()
		default:
			record.Fields[k] = val
		}
	}

	s.add(record)
	return nil
}

func (s *logStore) close() {
	s.muted.Store(true)
}
