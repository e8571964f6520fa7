package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID      uint   `gorm:"primaryKey"`
	OrderID string `gorm:"size:64"`
}

func setupTracedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	return db
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db := setupTracedDB(t)
	require.NoError(t, RegisterDBTracing(db, DefaultDBTracingConfig(), zap.NewNop()))
	assert.Nil(t, db.Callback().Create().Get("otel_timing:before_create"))
}

func TestRegisterDBTracing_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	db := setupTracedDB(t)
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	require.NoError(t, RegisterDBTracing(db, cfg, zap.NewNop()))
	assert.NotNil(t, db.Callback().Query().Get("otel_timing:after_query"))

	ctx, span := StartSpan(context.Background(), "orders.history")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{OrderID: "o-1"}).Error)

	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	assert.Len(t, rows, 1)

	var missing tracedRow
	err := db.WithContext(ctx).Where("order_id = ?", "absent").First(&missing).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	span.End()

	spans := sr.Ended()
	assert.GreaterOrEqual(t, len(spans), 4, "parent span plus one span per statement")
	for _, s := range spans {
		if s.Name() == "orders.history" {
			continue
		}
		assert.Equal(t, span.SpanContext().TraceID(), s.SpanContext().TraceID())
	}
}
