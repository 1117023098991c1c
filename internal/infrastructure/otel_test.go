package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covcheck/internal/config"
	"covcheck/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	// default config: metrics on, tracing off but still usable
	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		config  *OTelConfig
		wantErr bool
	}{
		{
			name:   "everything disabled",
			config: &OTelConfig{ServiceName: ServiceName, TraceExporter: "none", MetricExporter: "none"},
		},
		{
			name:   "stdout tracing",
			config: &OTelConfig{ServiceName: ServiceName, TraceExporter: "stdout", MetricExporter: "none", SampleRatio: 1},
		},
		{
			name:    "unknown trace exporter",
			config:  &OTelConfig{TraceExporter: "jaeger"},
			wantErr: true,
		},
		{
			name:    "unknown metric exporter",
			config:  &OTelConfig{MetricExporter: "statsd"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.config, quietLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

func TestNewOTelConfig(t *testing.T) {
	cfg := NewOTelConfig(config.Default().Telemetry, "1.2.3")
	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, "prometheus", cfg.MetricExporter)
	assert.Equal(t, "none", cfg.TraceExporter)
}

func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    ServiceName,
		TraceExporter:  "stdout",
		MetricExporter: "none",
		SampleRatio:    1,
	}, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, parent := providers.Tracer.Start(context.Background(), "parent")
	defer parent.End()
	ctx, child := providers.Tracer.Start(ctx, "child")
	defer child.End()

	traceID := TraceIDFromContext(ctx)
	assert.Equal(t, parent.SpanContext().TraceID().String(), traceID)
	assert.NotEqual(t, parent.SpanContext().SpanID(), child.SpanContext().SpanID())
	assert.True(t, child.IsRecording())

	RecordError(ctx, assert.AnError)
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestCoverageMetrics_Prometheus(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := NewCoverageMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordRun(ctx, "cli", 150*time.Millisecond, &domain.CoverageStats{
		TargetRows:  4,
		BulkRows:    10,
		MatchedRows: 3,
		MissingRows: 1,
	}, nil)
	metrics.RecordRun(ctx, "http", time.Second, nil, errors.New("boom"))
	metrics.UploadBytes.Add(ctx, 2048)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, "coverage_runs_total")
	assert.Contains(t, text, `status="failure"`)
	assert.Contains(t, text, "coverage_run_duration_seconds")
	assert.Contains(t, text, "coverage_rows_total")
	assert.Contains(t, text, `kind="matched"`)
	assert.Contains(t, text, "go_goroutines")
}

func TestCoverageMetrics_NilSafe(t *testing.T) {
	var metrics *CoverageMetrics
	assert.NotPanics(t, func() {
		metrics.RecordRun(context.Background(), "cli", time.Second, nil, nil)
	})
}
