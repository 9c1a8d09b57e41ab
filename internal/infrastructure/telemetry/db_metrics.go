package telemetry

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// PoolStatsSource reports connection pool statistics
type PoolStatsSource interface {
	Stats() sql.DBStats
}

// DBPoolMetrics publishes connection pool statistics as observable gauges.
// Values are read from the pool at collection time.
type DBPoolMetrics struct {
	registration metric.Registration
}

// NewDBPoolMetrics registers pool gauges for source on meter.
//
//	db_pool_connections{db.pool.state="in_use|idle"}
//	db_pool_connections_max
//	db_pool_wait_count
func NewDBPoolMetrics(meter metric.Meter, source PoolStatsSource) (*DBPoolMetrics, error) {
	connections, err := meter.Int64ObservableGauge(
		"db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge db_pool_connections: %w", err)
	}
	maxOpen, err := meter.Int64ObservableGauge(
		"db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge db_pool_connections_max: %w", err)
	}
	waitCount, err := meter.Int64ObservableCounter(
		"db_pool_wait_count",
		metric.WithDescription("Total number of connections waited for"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter db_pool_wait_count: %w", err)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := source.Stats()
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waitCount, stats.WaitCount)
		return nil
	}, connections, maxOpen, waitCount)
	if err != nil {
		return nil, fmt.Errorf("failed to register pool callback: %w", err)
	}

	return &DBPoolMetrics{registration: reg}, nil
}

// Stop unregisters the pool gauges.
func (m *DBPoolMetrics) Stop() error {
	return m.registration.Unregister()
}
