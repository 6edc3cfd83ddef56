// Package metrics provides Prometheus metrics for the clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendRequestsTotal tracks outbound backend requests
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total number of outbound backend requests",
		},
		[]string{"method", "status_code"},
	)

	// BackendRequestDuration tracks outbound backend request duration
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound backend requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// BackendRetriesTotal tracks retried backend reads
	BackendRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "backend",
			Name:      "retries_total",
			Help:      "Total number of retried backend requests",
		},
		[]string{"method"},
	)

	// PlatformFetchesTotal tracks platform fetches by outcome (success, error, skipped)
	PlatformFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "fetcher",
			Name:      "platform_fetches_total",
			Help:      "Total number of platform fetches by outcome",
		},
		[]string{"platform", "outcome"},
	)

	// StaleFetchesDiscarded tracks fetch results dropped because a newer fetch superseded them
	StaleFetchesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "fetcher",
			Name:      "stale_discarded_total",
			Help:      "Total number of fetch results discarded as stale",
		},
		[]string{"platform"},
	)

	// ModulePatchesTotal tracks module saves by platform and status
	ModulePatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "settings",
			Name:      "module_patches_total",
			Help:      "Total number of module patch attempts",
		},
		[]string{"platform", "status"},
	)

	// CommunityRenamesTotal tracks debounced community renames by status
	CommunityRenamesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "community",
			Name:      "renames_total",
			Help:      "Total number of community renames sent to the backend",
		},
		[]string{"status"},
	)

	// CommunityNameEditsCoalesced tracks edits replaced by a later edit inside the debounce window
	CommunityNameEditsCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "community",
			Name:      "name_edits_coalesced_total",
			Help:      "Total number of name edits superseded within the debounce window",
		},
	)

	// NotificationsTotal tracks user notifications by severity
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of user notifications emitted",
		},
		[]string{"severity"},
	)

	// EventsPublishedTotal tracks settings change events by type and status
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of settings change events published",
		},
		[]string{"type", "status"},
	)
)
