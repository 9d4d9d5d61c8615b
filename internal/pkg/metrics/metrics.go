package metrics

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// Outcomes recorded for every registry operation
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation_error"
	OutcomeNotFound   = "not_found"
	OutcomeStorage    = "storage_fault"
)

// ObserveOperation increments the counter for op with the given outcome
func ObserveOperation(op, outcome string) {
	OperationCounter(op, outcome).Inc()
}

// OperationCounter returns the counter tracking op with the given outcome
func OperationCounter(op, outcome string) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`student_registry_operations_total{operation=%q,outcome=%q}`, op, outcome))
}

// WritePrometheus writes all registered metrics in Prometheus text format
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
