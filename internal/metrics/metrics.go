// Package metrics counts cache and sale activity. The process is short-lived,
// so counters are written to a Prometheus textfile instead of being served.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics methods are safe on a nil receiver, which disables collection.
type Metrics struct {
	reg *prometheus.Registry

	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	sales          *prometheus.CounterVec
	revenue        prometheus.Counter
	stockMoved     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinepos", Subsystem: "cache", Name: "hits_total",
			Help: "Product lookups answered from the cache.",
		}, []string{"kind"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinepos", Subsystem: "cache", Name: "misses_total",
			Help: "Product lookups that went to the repository.",
		}, []string{"kind"}),
		cacheEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinepos", Subsystem: "cache", Name: "evictions_total",
			Help: "Entries dropped to make room.",
		}, []string{"kind"}),
		sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinepos", Name: "sales_total",
			Help: "Sale attempts by outcome.",
		}, []string{"outcome"}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cinepos", Name: "revenue_total",
			Help: "Sum of confirmed sale totals.",
		}),
		stockMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cinepos", Name: "concession_units_total",
			Help: "Concession units taken from or returned to stock.",
		}, []string{"direction"}),
	}
	m.reg.MustRegister(m.cacheHits, m.cacheMisses, m.cacheEvictions, m.sales, m.revenue, m.stockMoved)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) CacheHit(kind string) {
	if m != nil {
		m.cacheHits.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) CacheMiss(kind string) {
	if m != nil {
		m.cacheMisses.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) CacheEvict(kind string) {
	if m != nil {
		m.cacheEvictions.WithLabelValues(kind).Inc()
	}
}

// SaleCreated records a confirmed sale and its total.
func (m *Metrics) SaleCreated(total decimal.Decimal) {
	if m != nil {
		m.sales.WithLabelValues("created").Inc()
		m.revenue.Add(total.InexactFloat64())
	}
}

// SaleFailed records a rejected sale under the stage that rejected it.
func (m *Metrics) SaleFailed(stage string) {
	if m != nil {
		m.sales.WithLabelValues("failed_" + stage).Inc()
	}
}

func (m *Metrics) SaleReturned() {
	if m != nil {
		m.sales.WithLabelValues("returned").Inc()
	}
}

// StockMoved counts units; negative n means units left stock.
func (m *Metrics) StockMoved(n int) {
	if m == nil || n == 0 {
		return
	}
	if n < 0 {
		m.stockMoved.WithLabelValues("out").Add(float64(-n))
		return
	}
	m.stockMoved.WithLabelValues("in").Add(float64(n))
}

// WriteFile dumps every metric in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
