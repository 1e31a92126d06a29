package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/walletsys/wallet-ledger/internal/metrics"
)

// Collector implements metrics.Collector on Prometheus counters.
type Collector struct {
	operations     *prometheus.CounterVec
	transferStates *prometheus.CounterVec
}

// NewCollector creates the collector and registers its metrics with the
// given registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total ledger operations by kind and result",
			},
			[]string{"op", "result"},
		),
		transferStates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfer_states_total",
				Help:      "Terminal states reached by transfers",
			},
			[]string{"state"},
		),
	}
	reg.MustRegister(c.operations, c.transferStates)
	return c
}

func (c *Collector) RecordOperation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.operations.WithLabelValues(op, result).Inc()
}

func (c *Collector) RecordTransferState(state string) {
	c.transferStates.WithLabelValues(state).Inc()
}

var _ metrics.Collector = (*Collector)(nil)
