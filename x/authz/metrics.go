package authz

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts authorization pipeline outcomes.
type Metrics struct {
	Created       prometheus.Counter
	Signed        prometheus.Counter
	Executed      prometheus.Counter
	Expired       prometheus.Counter
	Cancelled     prometheus.Counter
	LimitRejected prometheus.Counter
}

// NewMetrics builds the counter set and registers it when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultsig_transactions_created_total",
			Help: "Transactions accepted into the authorization pipeline.",
		}),
		Signed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultsig_signatures_recorded_total",
			Help: "Signatures accepted onto pending transactions.",
		}),
		Executed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultsig_transactions_executed_total",
			Help: "Transactions successfully broadcast.",
		}),
		Expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultsig_transactions_expired_total",
			Help: "Transactions expired before reaching execution.",
		}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultsig_transactions_cancelled_total",
			Help: "Transactions cancelled by an owner.",
		}),
		LimitRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultsig_limit_rejections_total",
			Help: "Transactions rejected by spending limits.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Created, m.Signed, m.Executed,
			m.Expired, m.Cancelled, m.LimitRejected)
	}
	return m
}
