// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what handlers report to. Collector implements it; tests can
// pass Nop.
type Recorder interface {
	LinkIssued()
	LinkValidated(result string)
	SessionCreated()
	SessionResolved(result string)
	PostRead(counted bool)
}

type Collector struct {
	linksIssued     prometheus.Counter
	linkValidations *prometheus.CounterVec
	sessionsCreated prometheus.Counter
	sessionResolves *prometheus.CounterVec
	postReads       *prometheus.CounterVec
	registry        *prometheus.Registry
}

// NewCollector registers the metrics on a fresh registry, together with the
// Go runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		linksIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magiclink_links_issued_total",
			Help: "Magic links issued.",
		}),
		linkValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magiclink_link_validations_total",
			Help: "Magic link validations by result.",
		}, []string{"result"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magiclink_sessions_created_total",
			Help: "Sessions created.",
		}),
		sessionResolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magiclink_session_resolutions_total",
			Help: "Session lookups by result.",
		}, []string{"result"}),
		postReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "magiclink_post_reads_total",
			Help: "Post read events by result.",
		}, []string{"result"}),
		registry: reg,
	}

	reg.MustRegister(
		c.linksIssued,
		c.linkValidations,
		c.sessionsCreated,
		c.sessionResolves,
		c.postReads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) LinkIssued() { c.linksIssued.Inc() }

func (c *Collector) LinkValidated(result string) {
	c.linkValidations.WithLabelValues(result).Inc()
}

func (c *Collector) SessionCreated() { c.sessionsCreated.Inc() }

func (c *Collector) SessionResolved(result string) {
	c.sessionResolves.WithLabelValues(result).Inc()
}

func (c *Collector) PostRead(counted bool) {
	result := "duplicate"
	if counted {
		result = "counted"
	}
	c.postReads.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) LinkIssued()            {}
func (Nop) LinkValidated(string)   {}
func (Nop) SessionCreated()        {}
func (Nop) SessionResolved(string) {}
func (Nop) PostRead(bool)          {}
