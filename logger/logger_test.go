package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stderr", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stderr", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "keeperstats.log")

	log := Logger()
	if err := log.Configure("debug", "json", path, 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	log.WithComponent("file").Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &line); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, data)
	}
	if line["message"] != "hello" || line["component"] != "file" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestWarnAndFlowCounters(t *testing.T) {
	var buf bytes.Buffer
	log := Logger()
	log.SetOutput(&buf)

	log.WithComponent("counter_test").Warn("first")
	log.WithComponent("counter_test").Error("second")
	LogDataFlowEntry(log.WithComponent("counter_test"), "counter_source", "memory", 7, "trades")

	stats := Snapshot()
	if stats.Warnings["counter_test"] < 1 {
		t.Fatalf("warning not counted: %v", stats.Warnings)
	}
	if stats.Errors["counter_test"] < 1 {
		t.Fatalf("error not counted: %v", stats.Errors)
	}
	if stats.Records["counter_source"] < 7 {
		t.Fatalf("records not counted: %v", stats.Records)
	}
}

func TestLogPerformanceEntry(t *testing.T) {
	var buf bytes.Buffer
	log := Logger()
	log.SetOutput(&buf)

	LogPerformanceEntry(log.WithComponent("perf"), "perf", "fetch", 1500*time.Microsecond, nil)
	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line["duration_ms"] != 1.5 || line["operation"] != "fetch" {
		t.Fatalf("unexpected fields: %v", line)
	}
}

func TestLogRunSummaryWithoutCloudWatch(t *testing.T) {
	if CloudWatchEnabled() {
		t.Fatalf("cloudwatch must stay disabled until InitCloudWatch succeeds")
	}

	var buf bytes.Buffer
	log := Logger()
	log.SetOutput(&buf)

	LogRunSummary(context.Background(), log)
	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if line["message"] != "run summary" || line["component"] != "report" {
		t.Fatalf("unexpected summary line: %v", line)
	}
}
