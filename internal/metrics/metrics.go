// Package metrics exports Prometheus collectors for command dispatch,
// registration and component session outcomes.
//
// A Metrics value owns its registry. Observe and ObserveRouter subscribe it to
// the notification streams of an Extension and a Router; Handler serves the
// registry for scraping.
package metrics

import (
	"errors"
	"net/http"

	"github.com/keepmind9/slashkit/internal/interactivity"
	"github.com/keepmind9/slashkit/internal/slash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slashkit"

// Metrics holds every collector slashkit exports
type Metrics struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	registrations   *prometheus.CounterVec
	unbound         *prometheus.GaugeVec
	sessions        *prometheus.CounterVec
	sessionErrors   *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Command invocations by outcome",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from dispatch to handler completion",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Scope registration attempts by outcome",
		}, []string{"scope", "outcome"}),
		unbound: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unbound_commands",
			Help:      "Compiled top-level commands the platform did not return on the last registration",
		}, []string{"scope"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished component sessions by outcome",
		}, []string{"kind", "outcome"}),
		sessionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Component session failures by stage",
		}, []string{"kind", "stage"}),
		sessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Lifetime of component sessions",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.commands,
		m.commandDuration,
		m.registrations,
		m.unbound,
		m.sessions,
		m.sessionErrors,
		m.sessionDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe subscribes to the executed, errored and synced streams of ext.
// The returned func unsubscribes.
func (m *Metrics) Observe(ext *slash.Extension) func() {
	unsubs := []func(){
		ext.OnExecuted(m.executed),
		ext.OnErrored(m.errored),
		ext.OnSynced(m.synced),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// ObserveRouter subscribes to the session outcomes of r and exports its live session count
func (m *Metrics) ObserveRouter(r *interactivity.Router) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Component sessions currently routed",
	}, func() float64 { return float64(r.Len()) }))

	r.OnSessionResult(m.sessionResult)
	r.OnSessionError(m.sessionError)
}

func (m *Metrics) executed(evt slash.ExecutedEvent) {
	name := ""
	if evt.Context != nil {
		name = evt.Context.CommandName
	}
	m.commands.WithLabelValues(name, "ok").Inc()
	m.commandDuration.WithLabelValues(name).Observe(evt.Duration.Seconds())
}

func (m *Metrics) errored(evt slash.ErroredEvent) {
	outcome := Outcome(evt.Err)
	m.commands.WithLabelValues(evt.Command, outcome).Inc()
	// Lookup failures never reached a handler
	if evt.Context != nil {
		m.commandDuration.WithLabelValues(evt.Command).Observe(evt.Duration.Seconds())
	}
}

func (m *Metrics) synced(evt slash.SyncEvent) {
	scope := evt.Scope.String()
	outcome := "ok"
	if evt.Err != nil {
		outcome = "error"
	}
	m.registrations.WithLabelValues(scope, outcome).Inc()
	m.unbound.WithLabelValues(scope).Set(float64(len(evt.Unbound)))
}

func (m *Metrics) sessionResult(res interactivity.SessionResult) {
	outcome := "ok"
	switch {
	case res.Err != nil:
		outcome = "error"
	case res.CleanupErr != nil:
		outcome = "cleanup_error"
	}
	m.sessions.WithLabelValues(res.Kind, outcome).Inc()
	m.sessionDuration.WithLabelValues(res.Kind).Observe(res.Duration.Seconds())
}

func (m *Metrics) sessionError(e interactivity.SessionError) {
	m.sessionErrors.WithLabelValues(e.Kind, string(e.Stage)).Inc()
}

// Outcome maps a dispatch failure to a low-cardinality label
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, slash.ErrUnregisteredCommand):
		return "unregistered"
	case errors.Is(err, slash.ErrExtensionErrored):
		return "scope_errored"
	case errors.Is(err, slash.ErrArgumentResolution):
		return "bad_arguments"
	case errors.Is(err, slash.ErrHandlerPanic):
		return "panic"
	default:
		return "handler_error"
	}
}
