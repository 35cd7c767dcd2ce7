// Package metrics records store and search activity.
package metrics

import "context"

// Collector is the interface for metrics collection. The Prometheus-backed
// collector is used when metrics are enabled; NoopCollector otherwise.
type Collector interface {
	RecordOperation(ctx context.Context, operation string, status string, durationMs int64)
	RecordStage(ctx context.Context, operation string, stage string, durationMs int64)
	RecordError(ctx context.Context, operation string, errorType string)
	SetStorageCount(ctx context.Context, storageType string, count int64)
}

// Status labels for RecordOperation.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
