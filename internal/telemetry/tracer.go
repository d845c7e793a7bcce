package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys used across lease and trace-pipeline spans.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Lease attributes
	// ========================================================================
	AttrLeaseID       = "lease.id"
	AttrLeaseName     = "lease.name"
	AttrLeaseState    = "lease.state"
	AttrLeaseProvider = "lease.provider"
	AttrFencingToken  = "lease.fencing_token"
	AttrInstanceID    = "lease.instance_id"
	AttrHostID        = "lease.host_id"
	AttrLeaseDuration = "lease.duration_ms"

	// ========================================================================
	// Trace pipeline attributes
	// ========================================================================
	AttrFunctionName  = "trace.function_name"
	AttrTraceLevel    = "trace.level"
	AttrSinkName      = "trace.sink_name"
	AttrSinkType      = "trace.sink_type"
	AttrBatchSize     = "trace.batch_size"
	AttrRecordCount   = "trace.record_count"
	AttrDroppedCount  = "trace.dropped_count"
	AttrFlushDuration = "trace.flush_duration_ms"

	// ========================================================================
	// Storage backend attributes
	// ========================================================================
	AttrStoreName = "store.name"
	AttrStoreType = "store.type"
	AttrBucket    = "storage.bucket"
	AttrKey       = "storage.key"
	AttrRegion    = "storage.region"
	AttrTable     = "storage.table"

	// ========================================================================
	// Status API / auth attributes
	// ========================================================================
	AttrHTTPRoute  = "http.route"
	AttrHTTPMethod = "http.method"
	AttrHTTPStatus = "http.status_code"
	AttrSubject    = "auth.subject"
)

// Span names for operations.
const (
	SpanLeaseAcquire     = "lease.acquire"
	SpanLeaseRenew       = "lease.renew"
	SpanLeaseRelease     = "lease.release"
	SpanLeaseTick        = "lease.tick"
	SpanTraceWrite       = "trace.write"
	SpanTraceFlush       = "trace.flush"
	SpanTraceSinkWrite   = "trace.sink.write"
	SpanAuditRecord      = "audit.record"
	SpanStatusAPIRequest = "statusapi.request"
)

// LeaseID returns an attribute for the lease identifier.
func LeaseID(id string) attribute.KeyValue {
	return attribute.String(AttrLeaseID, id)
}

// LeaseName returns an attribute for the logical lease name.
func LeaseName(name string) attribute.KeyValue {
	return attribute.String(AttrLeaseName, name)
}

// LeaseState returns an attribute for the lease manager's current state.
func LeaseState(state string) attribute.KeyValue {
	return attribute.String(AttrLeaseState, state)
}

// LeaseProvider returns an attribute for the backing lease provider implementation.
func LeaseProvider(name string) attribute.KeyValue {
	return attribute.String(AttrLeaseProvider, name)
}

// FencingToken returns an attribute for the lease's fencing token.
func FencingToken(token int64) attribute.KeyValue {
	return attribute.Int64(AttrFencingToken, token)
}

// InstanceID returns an attribute for the requesting instance's identifier.
func InstanceID(id string) attribute.KeyValue {
	return attribute.String(AttrInstanceID, id)
}

// HostID returns an attribute for the host the lease guards.
func HostID(id string) attribute.KeyValue {
	return attribute.String(AttrHostID, id)
}

// FunctionName returns an attribute for the function a trace record belongs to.
func FunctionName(name string) attribute.KeyValue {
	return attribute.String(AttrFunctionName, name)
}

// TraceLevel returns an attribute for a trace record's level.
func TraceLevel(level string) attribute.KeyValue {
	return attribute.String(AttrTraceLevel, level)
}

// SinkName returns an attribute for a trace sink's configured name.
func SinkName(name string) attribute.KeyValue {
	return attribute.String(AttrSinkName, name)
}

// SinkType returns an attribute for a trace sink's backend type.
func SinkType(t string) attribute.KeyValue {
	return attribute.String(AttrSinkType, t)
}

// BatchSize returns an attribute for the number of records in a flush batch.
func BatchSize(n int) attribute.KeyValue {
	return attribute.Int(AttrBatchSize, n)
}

// RecordCount returns an attribute for a count of trace records.
func RecordCount(n int) attribute.KeyValue {
	return attribute.Int(AttrRecordCount, n)
}

// DroppedCount returns an attribute for a count of records dropped during flush.
func DroppedCount(n int) attribute.KeyValue {
	return attribute.Int(AttrDroppedCount, n)
}

// StoreName returns an attribute for store name.
func StoreName(name string) attribute.KeyValue {
	return attribute.String(AttrStoreName, name)
}

// StoreType returns an attribute for store type.
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// Bucket returns an attribute for an S3 bucket name.
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for an S3 object key.
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Region returns an attribute for a cloud region.
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// Table returns an attribute for a SQL table name.
func Table(name string) attribute.KeyValue {
	return attribute.String(AttrTable, name)
}

// HTTPRoute returns an attribute for the matched HTTP route pattern.
func HTTPRoute(route string) attribute.KeyValue {
	return attribute.String(AttrHTTPRoute, route)
}

// Subject returns an attribute for the authenticated JWT subject.
func Subject(sub string) attribute.KeyValue {
	return attribute.String(AttrSubject, sub)
}

// StartLeaseSpan starts a span for a lease manager operation.
func StartLeaseSpan(ctx context.Context, operation, leaseName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{LeaseName(leaseName)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "lease."+operation, trace.WithAttributes(allAttrs...))
}

// StartTraceSpan starts a span for a trace-pipeline operation.
func StartTraceSpan(ctx context.Context, operation, functionName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{FunctionName(functionName)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "trace."+operation, trace.WithAttributes(allAttrs...))
}

// StartSinkSpan starts a span for an individual sink write.
func StartSinkSpan(ctx context.Context, sinkName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{SinkName(sinkName)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, SpanTraceSinkWrite, trace.WithAttributes(allAttrs...))
}

// StartStatusAPISpan starts a span for an incoming status API request.
func StartStatusAPISpan(ctx context.Context, route string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{HTTPRoute(route)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, SpanStatusAPIRequest, trace.WithAttributes(allAttrs...))
}
