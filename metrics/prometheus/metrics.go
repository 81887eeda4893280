// Package prometheus provides Prometheus metrics exporters for the dialog
// engine.
package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dialogkit"

var (
	// eventsReceived is a counter of inbound user events.
	eventsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of inbound user events",
		},
		[]string{"platform", "input_kind"},
	)

	// rejectionsTotal is a counter of validation rejections by kind.
	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Total number of inputs rejected by validation",
		},
		[]string{"kind"},
	)

	// sendsTotal is a counter of outbound messages.
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "Total number of outbound messages",
		},
		[]string{"kind", "auto"}, // kind: text, buttons, media
	)

	// stepDuration is a histogram of step processing duration in seconds.
	stepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Histogram of step processing and send duration in seconds",
			Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
	)

	// stateCommitsTotal is a counter of committed step transitions.
	stateCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_commits_total",
			Help:      "Total number of committed step transitions",
		},
		[]string{"trigger"}, // trigger: user_input, auto, command
	)

	// chainsStarted is a counter of auto-transition chains started.
	chainsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chains_started_total",
			Help:      "Total number of auto-transition chains started",
		},
	)

	// chainsCompleted is a counter of chains that reached a resting step.
	chainsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chains_completed_total",
			Help:      "Total number of auto-transition chains completed",
		},
	)

	// chainsAborted is a counter of chains halted early, by reason.
	chainsAborted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chains_aborted_total",
			Help:      "Total number of auto-transition chains aborted",
		},
		[]string{"reason"},
	)

	// chainLength is a histogram of steps advanced per chain.
	chainLength = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_length_steps",
			Help:      "Histogram of steps advanced per auto-transition chain",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 25},
		},
	)

	// chainDuration is a histogram of total chain duration in seconds.
	chainDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_duration_seconds",
			Help:      "Histogram of total auto-transition chain duration in seconds",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// storeOpDuration is a histogram of state store operation latency.
	storeOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_op_duration_seconds",
			Help:      "Histogram of state store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op", "status"}, // op: get, create, update, delete, history
	)

	// sessionsCreated is a counter of new dialog sessions.
	sessionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of dialog sessions created",
		},
		[]string{"scenario"},
	)

	// sessionsReset is a counter of sessions rewound to their start step.
	sessionsReset = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_reset_total",
			Help:      "Total number of dialog sessions reset",
		},
		[]string{"scenario"},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		eventsReceived,
		rejectionsTotal,
		sendsTotal,
		stepDuration,
		stateCommitsTotal,
		chainsStarted,
		chainsCompleted,
		chainsAborted,
		chainLength,
		chainDuration,
		storeOpDuration,
		sessionsCreated,
		sessionsReset,
	}
)

// RecordEventReceived records one inbound user event.
func RecordEventReceived(platform, inputKind string) {
	eventsReceived.WithLabelValues(platform, inputKind).Inc()
}

// RecordRejection records a validation rejection.
func RecordRejection(kind string) {
	rejectionsTotal.WithLabelValues(kind).Inc()
}

// RecordSend records an outbound message.
func RecordSend(kind string, auto bool) {
	sendsTotal.WithLabelValues(kind, strconv.FormatBool(auto)).Inc()
}

// RecordStepDuration records step processing duration.
func RecordStepDuration(durationSeconds float64) {
	stepDuration.Observe(durationSeconds)
}

// RecordStateCommit records a committed step transition.
func RecordStateCommit(trigger string) {
	stateCommitsTotal.WithLabelValues(trigger).Inc()
}

// RecordChainStart records an auto-transition chain starting.
func RecordChainStart() {
	chainsStarted.Inc()
}

// RecordChainCompleted records a chain reaching its resting step.
func RecordChainCompleted(steps int, durationSeconds float64) {
	chainsCompleted.Inc()
	chainLength.Observe(float64(steps))
	chainDuration.Observe(durationSeconds)
}

// RecordChainAborted records a chain halted before its resting step.
func RecordChainAborted(reason string, steps int, durationSeconds float64) {
	chainsAborted.WithLabelValues(reason).Inc()
	chainLength.Observe(float64(steps))
	chainDuration.Observe(durationSeconds)
}

// RecordStoreOp records one state store operation.
func RecordStoreOp(op, status string, durationSeconds float64) {
	storeOpDuration.WithLabelValues(op, status).Observe(durationSeconds)
}

// RecordSessionCreated records a new dialog session.
func RecordSessionCreated(scenarioName string) {
	sessionsCreated.WithLabelValues(scenarioName).Inc()
}

// RecordSessionReset records a session reset.
func RecordSessionReset(scenarioName string) {
	sessionsReset.WithLabelValues(scenarioName).Inc()
}
