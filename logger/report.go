package logger

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type componentStat struct {
	warns  int64
	errors int64
}

var (
	components sync.Map // component -> *componentStat
	flows      sync.Map // source -> *int64 record count
	startedAt  = time.Now()
)

func statFor(component string) *componentStat {
	v, _ := components.LoadOrStore(component, &componentStat{})
	return v.(*componentStat)
}

func recordWarn(component string) {
	if component == "" {
		return
	}
	atomic.AddInt64(&statFor(component).warns, 1)
}

func recordError(component string) {
	if component == "" {
		return
	}
	atomic.AddInt64(&statFor(component).errors, 1)
}

func recordFlow(source string, n int) {
	v, _ := flows.LoadOrStore(source, new(int64))
	atomic.AddInt64(v.(*int64), int64(n))
}

// RunStats is a snapshot of the counters collected during a run.
type RunStats struct {
	Warnings map[string]int64
	Errors   map[string]int64
	Records  map[string]int64
	Elapsed  time.Duration
}

// Snapshot returns the current run counters.
func Snapshot() RunStats {
	stats := RunStats{
		Warnings: map[string]int64{},
		Errors:   map[string]int64{},
		Records:  map[string]int64{},
		Elapsed:  time.Since(startedAt),
	}
	components.Range(func(k, v any) bool {
		cs := v.(*componentStat)
		if w := atomic.LoadInt64(&cs.warns); w > 0 {
			stats.Warnings[k.(string)] = w
		}
		if e := atomic.LoadInt64(&cs.errors); e > 0 {
			stats.Errors[k.(string)] = e
		}
		return true
	})
	flows.Range(func(k, v any) bool {
		stats.Records[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	return stats
}

// LogRunSummary logs the run counters and publishes them to CloudWatch.
func LogRunSummary(ctx context.Context, log *Log) {
	stats := Snapshot()
	log.WithComponent("report").WithFields(Fields{
		"warnings":   stats.Warnings,
		"errors":     stats.Errors,
		"records":    stats.Records,
		"elapsed_ms": stats.Elapsed.Milliseconds(),
	}).Info("run summary")

	if !CloudWatchEnabled() {
		return
	}

	var data []cwtypes.MetricDatum
	for _, name := range sortedKeys(stats.Records) {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("records_read"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("source"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(stats.Records[name])),
		})
	}
	var warns, errs int64
	for _, v := range stats.Warnings {
		warns += v
	}
	for _, v := range stats.Errors {
		errs += v
	}
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("warnings"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(warns))},
		cwtypes.MetricDatum{MetricName: aws.String("errors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(errs))},
		cwtypes.MetricDatum{MetricName: aws.String("run_seconds"), Unit: cwtypes.StandardUnitSeconds, Value: aws.Float64(stats.Elapsed.Seconds())},
	)
	publishMetrics(ctx, data)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
