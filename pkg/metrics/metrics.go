package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the bot's collectors. Each instance owns its registry so
// tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	DraftsStarted prometheus.Counter
	ItemsAppended *prometheus.CounterVec // kind
	StoreErrors   *prometheus.CounterVec // reason
	Dispatches    *prometheus.CounterVec // visibility, status
	DispatchTime  prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		DraftsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storyarchive",
			Name:      "drafts_started_total",
			Help:      "Stories started by users.",
		}),
		ItemsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storyarchive",
			Name:      "items_appended_total",
			Help:      "Content items accepted into drafts.",
		}, []string{"kind"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storyarchive",
			Name:      "draft_errors_total",
			Help:      "Rejected draft operations by reason.",
		}, []string{"reason"}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storyarchive",
			Name:      "dispatches_total",
			Help:      "Archive publications by visibility and outcome.",
		}, []string{"visibility", "status"}),
		DispatchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storyarchive",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent republishing a story to the archive.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.DraftsStarted,
		m.ItemsAppended,
		m.StoreErrors,
		m.Dispatches,
		m.DispatchTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// TrackLiveDrafts exports fn as the live drafts gauge.
func (m *Metrics) TrackLiveDrafts(fn func() int) {
	m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "storyarchive",
		Name:      "live_drafts",
		Help:      "Drafts currently held in memory.",
	}, func() float64 { return float64(fn()) }))
}
