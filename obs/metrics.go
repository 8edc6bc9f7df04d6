package obs

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlagent_runs_total",
			Help: "Total number of agent runs by model and outcome.",
		},
		[]string{"model", "outcome"},
	)

	runDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlagent_run_duration_seconds",
			Help:    "End-to-end run latency by model and outcome.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model", "outcome"},
	)

	runRoundTrips = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlagent_run_round_trips",
			Help:    "Tool round-trips consumed per run.",
			Buckets: []float64{1, 2, 3, 5, 8, 12, 15},
		},
		[]string{"model"},
	)

	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlagent_model_calls_total",
			Help: "Total number of provider calls by model and status.",
		},
		[]string{"model", "status"},
	)

	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlagent_model_call_duration_seconds",
			Help:    "Provider call latency by model.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"model"},
	)

	modelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlagent_model_tokens_total",
			Help: "Total tokens exchanged with providers by direction.",
		},
		[]string{"model", "direction"},
	)

	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlagent_tool_calls_total",
			Help: "Total number of tool dispatches by tool and status.",
		},
		[]string{"tool", "status"},
	)

	toolCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlagent_tool_call_duration_seconds",
			Help:    "Tool dispatch latency by tool.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	sqlErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlagent_sql_errors_total",
			Help: "Total failed query_sql calls fed back for self-correction, by class.",
		},
		[]string{"class"},
	)
)

func init() {
	prometheus.MustRegister(
		runsTotal,
		runDurationSeconds,
		runRoundTrips,
		modelCallsTotal,
		modelCallDurationSeconds,
		modelTokensTotal,
		toolCallsTotal,
		toolCallDurationSeconds,
		sqlErrorsTotal,
	)
}
