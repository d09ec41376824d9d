package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"proctored-quiz-service/internal/domain"
)

// Metrics holds the prometheus collectors of the quiz controller.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Begins        *prometheus.CounterVec
	Submissions   *prometheus.CounterVec
	Scores        prometheus.Histogram
	Notifications *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Begins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "begins_total",
			Help:      "Quiz begin calls by outcome.",
		}, []string{"outcome"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "submissions_total",
			Help:      "Quiz submissions by outcome and trigger.",
		}, []string{"outcome", "trigger"}),
		Scores: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quiz",
			Name:      "score_ratio",
			Help:      "Score divided by question count for accepted submissions.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "notifications_total",
			Help:      "Notification delivery attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveBegin(err error) {
	if m == nil {
		return
	}
	m.Begins.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) ObserveSubmission(auto bool, err error) {
	if m == nil {
		return
	}
	trigger := "manual"
	if auto {
		trigger = "auto"
	}
	m.Submissions.WithLabelValues(Outcome(err), trigger).Inc()
}

func (m *Metrics) ObserveScore(score, total int) {
	if m == nil || total == 0 {
		return
	}
	m.Scores.Observe(float64(score) / float64(total))
}

func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(Outcome(err)).Inc()
}

// Outcome maps an error onto a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrAttemptsExhausted):
		return "attempts_exhausted"
	case errors.Is(err, domain.ErrIncompleteAnswers):
		return "incomplete"
	case errors.Is(err, domain.ErrCameraRequired):
		return "camera_required"
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return "already_submitted"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "no_session"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotificationFailed):
		return "failed"
	default:
		return "error"
	}
}
