// Package metrics defines the collector interface the ledger reports into.
// Implementations can export to any backend; the prometheus subpackage is
// the one the server wires in.
package metrics

// Collector receives one call per completed ledger operation.
type Collector interface {
	// RecordOperation counts one operation (provision, deposit, withdraw,
	// transfer) and whether it succeeded.
	RecordOperation(op string, err error)

	// RecordTransferState counts the terminal state a transfer reached
	// (initiated, debited, credited, persisted).
	RecordTransferState(state string)
}

// Noop discards all metrics. It is the default collector.
type Noop struct{}

func (Noop) RecordOperation(string, error) {}
func (Noop) RecordTransferState(string)    {}

var _ Collector = Noop{}
