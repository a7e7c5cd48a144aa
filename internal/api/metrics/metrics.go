// Package metrics defines and registers the custom Prometheus metrics of the
// bucket gateway. Metrics are registered with the default registry on
// import and exposed on /metrics next to the echo request metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bucketgate"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts authentication operations.
// Labels:
//   - operation: "login", "refresh" or "change_password"
//   - result: "success" or a short failure reason (e.g. "invalid_credentials")
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// TokenRejectionsTotal counts bearer tokens refused by the auth middleware.
var TokenRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rejections_total",
		Help:      "Total number of bearer tokens rejected, by reason.",
	},
	[]string{"reason"},
)

// ── Storage metrics ───────────────────────────────────────────────────────────

// PresignedURLsTotal counts URLs handed out, per bucket.
var PresignedURLsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "presigned_urls_total",
		Help:      "Total number of presigned GET URLs issued.",
	},
	[]string{"bucket"},
)

// ZipRequestsTotal counts archive job requests.
// Labels:
//   - bucket: target bucket
//   - result: "accepted", "rejected" or "failed"
var ZipRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "zip_requests_total",
		Help:      "Total number of zip job requests, by bucket and result.",
	},
	[]string{"bucket", "result"},
)

// ── Upstream metrics ──────────────────────────────────────────────────────────

// UpstreamErrorsTotal counts failed calls to AWS services.
var UpstreamErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_errors_total",
		Help:      "Total number of failed upstream calls, by service and operation.",
	},
	[]string{"service", "operation"},
)

// UpstreamDuration measures AWS call latency.
var UpstreamDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_duration_seconds",
		Help:      "Duration of upstream calls, by service and operation.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"service", "operation"},
)
