package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_operations_total",
		Help: "Settlement engine operations, by operation name.",
	}, []string{"op"})

	operationErrorsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_operation_errors_total",
		Help: "Failed settlement engine operations, by operation and reason.",
	}, []string{"op", "reason"})
)

func observeOperation(op string, err error) {
	operationsCounter.WithLabelValues(op).Inc()
	if err != nil {
		operationErrorsCounter.WithLabelValues(op, Reason(err)).Inc()
	}
}
