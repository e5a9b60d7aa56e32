package daemon

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theirongolddev/finburn/internal/pipeline"
)

type metrics struct {
	reg *prometheus.Registry

	passes       prometheus.Counter
	passErrors   prometheus.Counter
	passDuration prometheus.Histogram
	records      prometheus.Gauge
	freeRecords  prometheus.Gauge
	totals       *prometheus.GaugeVec
	pageChanges  prometheus.Counter
	rateRefresh  *prometheus.CounterVec
	visible      prometheus.Gauge
	subscribers  prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		reg: prometheus.NewRegistry(),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finburn", Name: "passes_total",
			Help: "Pipeline passes completed.",
		}),
		passErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finburn", Name: "pass_errors_total",
			Help: "Pipeline passes that could not read the page.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "finburn", Name: "pass_duration_seconds",
			Help:    "Wall time of a pipeline pass.",
			Buckets: []float64{.005, .01, .025, .05, .1, .2, .5, 1, 2},
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "finburn", Name: "records",
			Help: "Records in the latest pass.",
		}),
		freeRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "finburn", Name: "free_records",
			Help: "Free records in the latest pass.",
		}),
		totals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "finburn", Name: "cost",
			Help: "Latest totals in the display currency.",
		}, []string{"kind", "currency"}),
		pageChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finburn", Name: "page_changes_total",
			Help: "Changes seen in the observed container.",
		}),
		rateRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finburn", Name: "rate_refresh_total",
			Help: "Exchange rate refreshes by outcome.",
		}, []string{"result"}),
		visible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "finburn", Name: "visible",
			Help: "1 while the report surface is visible.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "finburn", Name: "stream_subscribers",
			Help: "Connected event stream clients.",
		}),
	}
	m.reg.MustRegister(
		m.passes, m.passErrors, m.passDuration, m.records, m.freeRecords,
		m.totals, m.pageChanges, m.rateRefresh, m.visible, m.subscribers,
	)
	return m
}

func (m *metrics) observePass(res pipeline.Result) {
	m.passes.Inc()
	m.passDuration.Observe(res.Duration.Seconds())
	m.records.Set(float64(res.Summary.Count))
	m.freeRecords.Set(float64(res.Summary.FreeCount))

	m.totals.Reset()
	cur := string(res.Summary.Currency)
	m.totals.WithLabelValues("total", cur).Set(res.Summary.TotalCost)
	m.totals.WithLabelValues("monthly", cur).Set(res.Summary.MonthlyCost)
	m.totals.WithLabelValues("remaining", cur).Set(res.Summary.RemainingValue)
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
