package ledger

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	calls            *prometheus.CounterVec
	agreementsActive prometheus.Gauge
	depositsEscrowed prometheus.Gauge
	rentCollected    prometheus.Counter
	journalSeq       prometheus.Gauge
}

// newMetrics registers the ledger collectors. A nil registerer yields
// working, unregistered collectors.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leasehold_calls_total",
			Help: "ledger calls by operation and outcome",
		}, []string{"op", "outcome"}),
		agreementsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "leasehold_agreements_active",
			Help: "current count of active agreements",
		}),
		depositsEscrowed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "leasehold_deposits_escrowed",
			Help: "security deposits currently held in escrow",
		}),
		rentCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "leasehold_rent_collected_total",
			Help: "total rent transferred to owners",
		}),
		journalSeq: factory.NewGauge(prometheus.GaugeOpts{
			Name: "leasehold_journal_seq",
			Help: "sequence number of the last committed journal entry",
		}),
	}
}

// outcome is "ok" for success, the lower-cased error code otherwise.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}
