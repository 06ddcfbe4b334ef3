package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// turnsTotal counts turns by the step they started from and outcome
	// (ok|error|replayed). Both label sets are small and fixed.
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_turns_total",
			Help: "Dialogue turns processed, by starting step and outcome.",
		},
		[]string{"step", "outcome"},
	)

	// fallbackTotal counts free-form responder calls by result (ok|error).
	fallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_fallback_total",
			Help: "Fallback responder calls, by result.",
		},
		[]string{"result"},
	)

	transcriptFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_transcript_failures_total",
			Help: "Turns whose transcript could not be written.",
		},
	)

	ticketsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_tickets_created_total",
			Help: "Support tickets raised from chat grievances.",
		},
	)
)

func init() {
	prometheus.MustRegister(turnsTotal, fallbackTotal, transcriptFailures, ticketsCreated)
}
