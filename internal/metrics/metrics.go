package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const namespace = "videostream"

var (
	StreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "requests_total",
			Help:      "Total stream requests by response status",
		},
		[]string{"status"},
	)

	StreamBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "bytes_total",
			Help:      "Total media bytes handed to clients",
		},
	)

	AdEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ads",
			Name:      "events_total",
			Help:      "Ad engagement events by outcome",
		},
		[]string{"outcome"},
	)

	RevenueCreditedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "earnings",
			Name:      "revenue_credited_total",
			Help:      "Revenue credited to creators by revenue type",
		},
		[]string{"type"},
	)

	EarningsConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "earnings",
			Name:      "conflicts_total",
			Help:      "Accumulator updates retried after a concurrency conflict",
		},
	)

	TipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tips",
			Name:      "total",
			Help:      "Tip attempts by status",
		},
		[]string{"status"},
	)
)

func RecordStreamRequest(status string) {
	StreamRequestsTotal.WithLabelValues(status).Inc()
}

func RecordStreamBytes(sent int64) {
	StreamBytesTotal.Add(float64(sent))
}

func RecordAdEvent(outcome string) {
	AdEventsTotal.WithLabelValues(outcome).Inc()
}

// RecordRevenue takes the amount as float only for exposition; ledger math
// stays in decimal.
func RecordRevenue(revenueType string, amount float64) {
	RevenueCreditedTotal.WithLabelValues(revenueType).Add(amount)
}

func RecordConflict() {
	EarningsConflictsTotal.Inc()
}

func RecordTip(status string) {
	TipsTotal.WithLabelValues(status).Inc()
}

// Handler serves the default registry in Prometheus text format.
func Handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
}
