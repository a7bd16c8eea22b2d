package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/deuce/internal/tennis"
)

var (
	ralliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deuce",
		Name:      "rallies_total",
		Help:      "Number of rallies applied to games in progress.",
	}, []string{"scorer"})

	gamesFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deuce",
		Name:      "games_finished_total",
		Help:      "Number of games that reached an outcome.",
	}, []string{"outcome"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deuce",
		Name:      "notifications_published_total",
		Help:      "Number of notifications published to Redis pub/sub.",
	}, []string{"event", "result"})
)

func RallyScored(s tennis.Scorer) {
	ralliesTotal.WithLabelValues(s.String()).Inc()
}

func GameFinished(o tennis.Outcome) {
	gamesFinishedTotal.WithLabelValues(o.String()).Inc()
}

func NotificationPublished(event string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	notificationsTotal.WithLabelValues(event, result).Inc()
}
