package webhook

import "github.com/prometheus/client_golang/prometheus"

var eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "readingbot_webhook_events_total",
	Help: "Payment notifications by event type and outcome.",
}, []string{"event", "outcome"})

func init() {
	prometheus.MustRegister(eventsTotal)
}
