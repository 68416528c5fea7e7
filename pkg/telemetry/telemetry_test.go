package telemetry

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default", mutate: func(c *Config) {}},
		{name: "development", mutate: func(c *Config) { *c = *DevelopmentConfig() }},
		{name: "missing service name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: true},
		{name: "missing version", mutate: func(c *Config) { c.ServiceVersion = "" }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: true},
		{name: "bad exporter", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "jaeger"
		}, wantErr: true},
		{name: "otlp without endpoint", mutate: func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "otlp"
		}, wantErr: true},
		{name: "bad sampling", mutate: func(c *Config) { c.Tracing.SamplingRate = 1.5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"fatal":   zerolog.FatalLevel,
		"unknown": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.NewComponentLogger("importer").WithItemID(3).WithBatchID("b-1").Info("inserted")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered at info level: %s", out)
	}
	for _, want := range []string{`"component":"importer"`, `"item_id":3`, `"batch_id":"b-1"`, `"message":"inserted"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestLoggerContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LoggingConfig{Level: "debug", Format: "json"}, &buf)

	ctx := logger.WithContext(context.Background())
	if FromContext(ctx) != logger {
		t.Fatal("expected logger from context")
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("expected fallback logger")
	}
}

func TestMetricsRecording(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "test"})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	m.RecordOperation("records.create", "ok", 0)
	m.RecordOperation("records.create", "error", 0)
	m.RecordImportRows("inserted", 3)
	m.RecordImportRows("skipped", 0)
	m.RecordExport("csv", 2)
	m.RecordPages(2)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("records.create", "ok")); got != 1 {
		t.Errorf("ok operations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.operationErrors.WithLabelValues("records.create")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.importRows.WithLabelValues("inserted")); got != 3 {
		t.Errorf("inserted rows = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.exportRows.WithLabelValues("csv")); got != 2 {
		t.Errorf("exported rows = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pages); got != 2 {
		t.Errorf("pages = %v, want 2", got)
	}
}

func TestDisabledMetricsAreNoop(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false, Textfile: filepath.Join(t.TempDir(), "x.prom")})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordOperation("op", "ok", 0)
	m.RecordImportRows("inserted", 1)
	m.RecordExport("pdf", 1)
	m.RecordPages(1)
	if m.Registry() != nil {
		t.Error("expected nil registry when disabled")
	}
	if err := m.WriteTextfile(); err != nil {
		t.Errorf("WriteTextfile on disabled metrics: %v", err)
	}

	var nilMetrics *Metrics
	nilMetrics.RecordOperation("op", "ok", 0)
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "itemdesk.prom")
	m, err := NewMetrics(MetricsConfig{Enabled: true, Namespace: "itemdesk", Textfile: path})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordExport("csv", 5)

	if err := m.WriteTextfile(); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `itemdesk_export_rows_total{format="csv"} 5`) {
		t.Errorf("unexpected textfile contents:\n%s", data)
	}
}

func TestStartOperationNilTelemetry(t *testing.T) {
	var tel *Telemetry
	op := tel.StartOperation(context.Background(), "records.list")
	if op.Ctx == nil || op.Logger == nil {
		t.Fatal("expected usable instrumented context")
	}
	op.End(nil)
}

func TestStartOperationRecordsMetrics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "error"
	tel, err := NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("NewTelemetry: %v", err)
	}
	defer tel.Shutdown(context.Background())

	op := tel.StartOperation(context.Background(), "records.update")
	op.End(errors.New("boom"))

	if got := testutil.ToFloat64(tel.Metrics.operations.WithLabelValues("records.update", "error")); got != 1 {
		t.Errorf("error operations = %v, want 1", got)
	}
}

func TestTracingNoneExporterProducesSpans(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: true, Exporter: "none", SamplingRate: 1}, "itemdesk", "test", "test")
	if err != nil {
		t.Fatalf("NewTracer: %v", err)
	}
	defer tracer.Shutdown(context.Background())

	ctx, span := tracer.StartSpan(context.Background(), "probe")
	defer span.End()

	if TraceID(ctx) == "" {
		t.Error("expected a valid trace id")
	}
}

func TestNopTelemetry(t *testing.T) {
	tel := Nop()
	op := tel.StartOperation(context.Background(), "noop")
	op.End(nil)
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
