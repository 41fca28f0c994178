package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/AntonStoeckl/book-lending-engine-go/lending/oteladapters"
)

func Test_SlogBridgeLogger_WithHandler_LogsAllLevels(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(
		slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "tx committed", "operation", "tx")
	logger.InfoContext(ctx, "loan created", "loan_id", "L1")
	logger.WarnContext(ctx, "concurrency conflict", "attempt", 2)
	logger.ErrorContext(ctx, "commit failed", "error", "boom")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"msg":"tx committed"`)
	assert.Contains(t, output, `"loan_id":"L1"`)
	assert.Contains(t, output, `"attempt":2`)
	assert.Contains(t, output, `"level":"ERROR"`)
}

func Test_SlogBridgeLogger_UsesGlobalProvider(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("book-lending-engine")

	assert.NotPanics(t, func() {
		logger.InfoContext(context.Background(), "reservation promoted", "reservation_id", "R1")
	})
}

func Test_OTelLogger_EmitsRecords(t *testing.T) {
	// arrange
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)

	// act
	logger.WarnContext(context.Background(), "reservation expired", "reservation_id", "R1", "removed", 3, "dangling")

	// assert
	require.Len(t, recorder.records, 1)

	record := recorder.records[0]
	assert.Equal(t, log.SeverityWarn, record.Severity())
	assert.Equal(t, "reservation expired", record.Body().AsString())

	attrs := make(map[string]string)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})

	assert.Equal(t, map[string]string{"reservation_id": "R1", "removed": "3"}, attrs)
}

func Test_OTelLogger_AllLevels(t *testing.T) {
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("test"))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "debug")
		logger.InfoContext(ctx, "info")
		logger.WarnContext(ctx, "warn")
		logger.ErrorContext(ctx, "error", 42, "non-string key is skipped")
	})
}

type recordingLogger struct {
	noop.Logger

	records []log.Record
}

func (l *recordingLogger) Emit(_ context.Context, record log.Record) {
	l.records = append(l.records, record)
}
