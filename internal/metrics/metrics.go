// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	EventsDecoded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "levelstate_events_decoded_total",
			Help: "Total number of enriched event records decoded successfully",
		},
	)

	EventsDecodeFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "levelstate_events_decode_failed_total",
			Help: "Total number of enriched event records skipped because they could not be decoded",
		},
	)

	SightingsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelstate_sightings_skipped_total",
			Help: "Total number of level context entries skipped",
		},
		[]string{"reason"}, // "missing_field", "null_value", "malformed_context", "invalid"
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "levelstate_batch_duration_seconds",
			Help:    "Time taken to process one batch of event records",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Presence
	PresenceUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelstate_presence_updates_total",
			Help: "Presence updates by outcome",
		},
		[]string{"result"}, // "applied", "rejected"
	)

	LevelChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelstate_level_changes_total",
			Help: "Level changes recorded, by shape",
		},
		[]string{"shape"}, // "transition", "arrival", "departure"
	)

	DeltaDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelstate_delta_duplicates_total",
			Help: "Counter deltas skipped because they were already applied",
		},
		[]string{"target"}, // "transition", "population"
	)

	PopulationClamped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "levelstate_population_clamped_total",
			Help: "Population decrements that would have gone below zero",
		},
	)

	OutboxRedrives = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "levelstate_outbox_redrives_total",
			Help: "Pending level changes delivered again after an earlier failure",
		},
	)

	StoreConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelstate_store_conflicts_total",
			Help: "Transaction conflicts retried by the state store",
		},
		[]string{"operation"},
	)

	// Reaper
	ReapedPresences = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "levelstate_reaped_presences_total",
			Help: "Stale presence rows deleted by the reaper",
		},
	)

	ReapConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "levelstate_reap_conflicts_total",
			Help: "Stale presence rows not deleted because the player returned",
		},
	)

	ReapDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "levelstate_reap_duration_seconds",
			Help:    "Duration of reaper passes",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Flusher
	FlushRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelstate_flush_rows_total",
			Help: "Rows written to archive snapshots",
		},
		[]string{"snapshot"}, // "transitions", "population"
	)

	FlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "levelstate_flush_duration_seconds",
			Help:    "Duration of flush passes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"snapshot"},
	)

	FlushErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelstate_flush_errors_total",
			Help: "Failed flush passes",
		},
		[]string{"snapshot"},
	)

	LastFlushTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "levelstate_last_flush_timestamp_seconds",
			Help: "Unix time of the last successful flush",
		},
		[]string{"snapshot"},
	)

	ArchiveWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelstate_archive_writes_total",
			Help: "Archive object writes by backend and result",
		},
		[]string{"backend", "result"},
	)

	// Transport
	NATSMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelstate_nats_messages_total",
			Help: "NATS messages handled, by topic and result",
		},
		[]string{"topic", "result"}, // "ok", "retry", "published", "publish_error"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "levelstate_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelstate_api_requests_total",
			Help: "Total number of ops API requests",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordDecode records the outcome of decoding one record.
func RecordDecode(err error) {
	if err != nil {
		EventsDecodeFailed.Inc()
		return
	}
	EventsDecoded.Inc()
}

// RecordSightingSkipped records a level context entry that was ignored.
func RecordSightingSkipped(reason string) {
	SightingsSkipped.WithLabelValues(reason).Inc()
}

// RecordBatch records the processing time of one batch.
func RecordBatch(duration time.Duration) {
	BatchDuration.Observe(duration.Seconds())
}

// RecordPresenceUpdate records an applied or rejected presence write.
func RecordPresenceUpdate(applied bool) {
	if applied {
		PresenceUpdates.WithLabelValues("applied").Inc()
		return
	}
	PresenceUpdates.WithLabelValues("rejected").Inc()
}

// RecordLevelChange records a recorded level change by shape.
func RecordLevelChange(shape string) {
	LevelChanges.WithLabelValues(shape).Inc()
}

// RecordDeltaDuplicate records a counter delta that had already been applied.
func RecordDeltaDuplicate(target string) {
	DeltaDuplicates.WithLabelValues(target).Inc()
}

// RecordPopulationClamp records a decrement that was clamped at zero.
func RecordPopulationClamp() {
	PopulationClamped.Inc()
}

// RecordOutboxRedrive records a re-delivered pending level change.
func RecordOutboxRedrive() {
	OutboxRedrives.Inc()
}

// RecordStoreConflict records a retried store transaction.
func RecordStoreConflict(operation string) {
	StoreConflicts.WithLabelValues(operation).Inc()
}

// RecordReap records one reaper pass.
func RecordReap(deleted, conflicts int, duration time.Duration) {
	ReapedPresences.Add(float64(deleted))
	ReapConflicts.Add(float64(conflicts))
	ReapDuration.Observe(duration.Seconds())
}

// RecordFlush records one flush pass of the named snapshot.
func RecordFlush(snapshot string, rows int, duration time.Duration, err error) {
	FlushDuration.WithLabelValues(snapshot).Observe(duration.Seconds())
	if err != nil {
		FlushErrors.WithLabelValues(snapshot).Inc()
		return
	}
	FlushRows.WithLabelValues(snapshot).Add(float64(rows))
	LastFlushTimestamp.WithLabelValues(snapshot).SetToCurrentTime()
}

// RecordArchiveWrite records an archive put.
func RecordArchiveWrite(backend string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ArchiveWrites.WithLabelValues(backend, result).Inc()
}

// RecordNATSMessage records a consumed or published NATS message.
func RecordNATSMessage(topic, result string) {
	NATSMessages.WithLabelValues(topic, result).Inc()
}

// RecordCircuitBreakerState records a breaker state transition.
func RecordCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordAPIRequest records an ops API request.
func RecordAPIRequest(method, route, status string) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
}
