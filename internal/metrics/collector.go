package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ActivitySource reports the transfers currently in progress.
type ActivitySource interface {
	GetActiveCount() int
	GetActiveBytes() int64
}

// TransferMetricsCollector reads active transfer gauges on each scrape
type TransferMetricsCollector struct {
	source ActivitySource

	// Metric descriptors
	activeTransfers *prometheus.Desc
	activeBytes     *prometheus.Desc
}

// NewTransferMetricsCollector creates a new collector
func NewTransferMetricsCollector(source ActivitySource) *TransferMetricsCollector {
	return &TransferMetricsCollector{
		source: source,
		activeTransfers: prometheus.NewDesc(
			"filesender_active_transfers",
			"Number of transfers currently in progress",
			nil, nil,
		),
		activeBytes: prometheus.NewDesc(
			"filesender_active_transfer_bytes",
			"Combined size of transfers currently in progress in bytes",
			nil, nil,
		),
	}
}

// Describe sends metric descriptors to Prometheus
func (c *TransferMetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeTransfers
	ch <- c.activeBytes
}

// Collect reads current values from the source and sends them to Prometheus
func (c *TransferMetricsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		c.activeTransfers,
		prometheus.GaugeValue,
		float64(c.source.GetActiveCount()),
	)

	ch <- prometheus.MustNewConstMetric(
		c.activeBytes,
		prometheus.GaugeValue,
		float64(c.source.GetActiveBytes()),
	)
}
