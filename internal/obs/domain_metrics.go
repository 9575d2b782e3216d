package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts cart store mutations by operation and outcome.
	CartMutationsTotal *prometheus.CounterVec
	// CartItemsGauge tracks the item count of the most recently mutated cart.
	CartItemsGauge prometheus.Gauge
	// InvoiceGeneratedTotal counts invoice generation outcomes.
	InvoiceGeneratedTotal *prometheus.CounterVec
	// InvoiceGenerateLatency records invoice generation latency in milliseconds.
	InvoiceGenerateLatency prometheus.Histogram
	// CatalogSourceFetchTotal counts upstream catalog fetch outcomes.
	CatalogSourceFetchTotal *prometheus.CounterVec
	// CatalogRecordsSkipped counts malformed upstream records dropped during normalisation.
	CatalogRecordsSkipped prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart store mutations by operation and result.",
		}, []string{"op", "result"})
		CartItemsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cart_items",
			Help:      "Item count of the most recently mutated cart.",
		})
		InvoiceGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_generated_total",
			Help:      "Count of invoice generation outcomes.",
		}, []string{"result"})
		InvoiceGenerateLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invoice_generate_duration_ms",
			Help:      "Latency of invoice generation in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500},
		})
		CatalogSourceFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_source_fetch_total",
			Help:      "Count of upstream catalog feed fetch outcomes.",
		}, []string{"result"})
		CatalogRecordsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_records_skipped_total",
			Help:      "Number of malformed catalog records skipped during normalisation.",
		})
		mustRegister(reg,
			CartMutationsTotal,
			CartItemsGauge,
			InvoiceGeneratedTotal,
			InvoiceGenerateLatency,
			CatalogSourceFetchTotal,
			CatalogRecordsSkipped,
		)
	})
}
