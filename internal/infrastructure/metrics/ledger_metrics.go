// Package metrics expone contadores Prometheus del motor de ledger.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/parts-ledger/internal/application/ledger"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
)

var _ ledger.Recorder = (*LedgerMetrics)(nil)

// LedgerMetrics contadores de operaciones, unidades movidas y reintentos por conflicto.
type LedgerMetrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	units      *prometheus.CounterVec
	retries    *prometheus.CounterVec
}

// NewLedgerMetrics registra los contadores en un registry propio (no el global) para que los tests
// puedan crear varias instancias.
func NewLedgerMetrics(namespace string) *LedgerMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &LedgerMetrics{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Operaciones del motor de ledger por resultado",
			},
			[]string{"op", "result"},
		),
		units: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_movement_units_total",
				Help:      "Unidades movidas por tipo de movimiento",
			},
			[]string{"type"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_conflict_retries_total",
				Help:      "Reintentos por conflicto de concurrencia",
			},
			[]string{"op"},
		),
	}
}

// ObserveOperation cuenta la operación con su resultado.
func (m *LedgerMetrics) ObserveOperation(op string, err error) {
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
}

// ObserveMovement suma las unidades confirmadas.
func (m *LedgerMetrics) ObserveMovement(movementType entity.MovementType, quantity int) {
	m.units.WithLabelValues(string(movementType)).Add(float64(quantity))
}

// ObserveRetry cuenta un reintento.
func (m *LedgerMetrics) ObserveRetry(op string) {
	m.retries.WithLabelValues(op).Inc()
}

// Handler expone el registry en formato Prometheus.
func (m *LedgerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
