package lending

import "github.com/prometheus/client_golang/prometheus"

// Operation labels.
const (
	OpReserve   = "reserve"
	OpReturn    = "return"
	OpGroup     = "group_reserve"
	OpRetire    = "retire"
	OpReinstate = "reinstate"
)

// Metrics counts engine outcomes.
type Metrics struct {
	operations *prometheus.CounterVec
	pokemon    *prometheus.CounterVec
}

// NewMetrics creates the engine collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pokelend",
			Subsystem: "lending",
			Name:      "operations_total",
			Help:      "Lending operations by outcome.",
		}, []string{"operation", "outcome"}),
		pokemon: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pokelend",
			Subsystem: "lending",
			Name:      "pokemon_total",
			Help:      "Pokemon moved by lending operations.",
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.pokemon)
	}
	return m
}

func (m *Metrics) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) moved(op string, n int) {
	if n > 0 {
		m.pokemon.WithLabelValues(op).Add(float64(n))
	}
}
