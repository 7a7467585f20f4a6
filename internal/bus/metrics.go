package bus

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chimerad",
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Total events accepted by the bus",
		},
		[]string{"type"},
	)

	deliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chimerad",
			Subsystem: "bus",
			Name:      "delivery_failures_total",
			Help:      "Subscriber callbacks that returned an error or panicked",
		},
		[]string{"subscriber"},
	)

	subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chimerad",
			Subsystem: "bus",
			Name:      "subscribers",
			Help:      "Currently registered subscribers",
		},
	)

	logSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chimerad",
			Subsystem: "bus",
			Name:      "log_size",
			Help:      "Events currently held in the bounded log",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsPublished, deliveryFailures, subscribers, logSize)
}
