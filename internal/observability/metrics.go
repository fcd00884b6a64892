package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain collectors. HTTP metrics live in the middleware package.
var (
	// Submissions counts form deliveries by outcome:
	// accepted|duplicate|unresolved|rejected|malformed|unauthorized.
	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellbeing_submissions_total",
			Help: "Form submissions received, by outcome.",
		},
		[]string{"outcome"},
	)

	// Dispatches counts outbound notifications by trigger (onboarding|daily|admin)
	// and result (sent|failed).
	Dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellbeing_dispatches_total",
			Help: "Outbound chat notifications, by trigger and result.",
		},
		[]string{"trigger", "result"},
	)

	// UsersCreated counts identities created on first contact or registration.
	UsersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wellbeing_users_created_total",
			Help: "User identities created.",
		},
	)

	// DailyRun records the per-user outcome counts of the most recent daily firing.
	DailyRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wellbeing_daily_push_last_run",
			Help: "Per-user outcome counts of the last daily push firing.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(Submissions, Dispatches, UsersCreated, DailyRun)
}
