package metrics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserveOperation(t *testing.T) {
	before := OperationCounter("create", OutcomeOK).Get()

	ObserveOperation("create", OutcomeOK)
	ObserveOperation("create", OutcomeOK)

	assert.Equal(t, before+2, OperationCounter("create", OutcomeOK).Get())
}

func TestWritePrometheus(t *testing.T) {
	ObserveOperation("delete", OutcomeNotFound)

	var out bytes.Buffer
	WritePrometheus(&out)

	assert.Contains(t, out.String(), `student_registry_operations_total{operation="delete",outcome="not_found"}`)
}
