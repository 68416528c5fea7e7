// Package telemetry provides observability instrumentation for itemdesk.
//
// It combines structured logging (zerolog), tracing (OpenTelemetry) and
// metrics (Prometheus) behind a single Telemetry handle.
//
// # Usage
//
// Initialize telemetry at startup and shut it down before exit:
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Instrument an operation:
//
//	op := tel.StartOperation(ctx, "records.create")
//	id, err := store.InsertItem(op.Ctx, name, description)
//	op.End(err)
//
// StartOperation is safe on a nil *Telemetry, so instrumented code does not
// need to special-case uninstrumented callers.
//
// # Metrics
//
// The CLI is short-lived, so there is no scrape endpoint. When
// MetricsConfig.Textfile is set the registry is written there on Shutdown in
// the text exposition format, ready for node_exporter's textfile collector.
package telemetry
