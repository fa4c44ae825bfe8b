package reading

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "readingbot_sessions_started_total",
		Help: "Reading sessions started by scenario label.",
	}, []string{"label"})

	sessionsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "readingbot_sessions_finished_total",
		Help: "Reading sessions that reached a terminal status.",
	}, []string{"status"})

	stepsRendered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "readingbot_steps_rendered_total",
		Help: "Script steps rendered across all sessions.",
	})
)

func init() {
	prometheus.MustRegister(sessionsStarted, sessionsFinished, stepsRendered)
}
