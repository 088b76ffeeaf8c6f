// Package metrics exposes Prometheus instrumentation for the portal client
// and the guide engine. Metrics register with the default registry via
// promauto at package init; Handler() serves them when a metrics address
// is configured.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PortalRequests counts player_api requests by action and result.
var PortalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptvdeck_portal_requests_total",
	Help: "Portal API requests by action and result.",
}, []string{"action", "result"})

// GuideRefreshes counts guide loads by source (cache, fetch) and result.
var GuideRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptvdeck_guide_refreshes_total",
	Help: "Guide refreshes by source and result.",
}, []string{"source", "result"})

// GuideChannels is the channel count of the active guide index.
var GuideChannels = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "iptvdeck_guide_channels",
	Help: "Channels in the active guide index.",
})

// Correlations counts channel-to-guide lookups by tier (id, name, fuzzy,
// memo) and miss.
var Correlations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "iptvdeck_guide_correlations_total",
	Help: "Channel to guide correlations by tier.",
}, []string{"tier"})

// FuzzyScanDuration tracks the cost of full fuzzy scans.
var FuzzyScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "iptvdeck_guide_fuzzy_scan_seconds",
	Help:    "Duration of fuzzy name scans over the guide index.",
	Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
})

// Handler returns the scrape handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
