package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auction holds the bidding engine's Prometheus instruments. Construct one
// per process with the registry the /metrics endpoint serves; tests pass
// their own registry so repeated construction never double-registers.
type Auction struct {
	BidsTotal            *prometheus.CounterVec
	BidResolutionSeconds prometheus.Histogram
	LiveAuctions         prometheus.Gauge
	SnipeExtensions      prometheus.Counter
	EventsPublished      *prometheus.CounterVec
	WSConnections        prometheus.Gauge
}

// NewAuction registers the auction metrics on reg
func NewAuction(reg prometheus.Registerer) *Auction {
	factory := promauto.With(reg)
	return &Auction{
		BidsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mc",
				Subsystem: "auction",
				Name:      "bids_total",
				Help:      "Bid submissions by outcome",
			},
			[]string{"result"},
		),
		BidResolutionSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "mc",
				Subsystem: "auction",
				Name:      "bid_resolution_seconds",
				Help:      "End-to-end bid placement latency",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
		),
		LiveAuctions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mc",
				Subsystem: "auction",
				Name:      "live_total",
				Help:      "Number of live auctions",
			},
		),
		SnipeExtensions: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "mc",
				Subsystem: "auction",
				Name:      "snipe_extensions_total",
				Help:      "Anti-snipe end time extensions applied",
			},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mc",
				Subsystem: "auction",
				Name:      "events_published_total",
				Help:      "Events handed to the broadcaster by kind",
			},
			[]string{"kind"},
		),
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mc",
				Subsystem: "auction",
				Name:      "ws_connections",
				Help:      "Active websocket spectators",
			},
		),
	}
}
