// Package prometheus exports turn lifecycle counters.
package prometheus

import (
	"fmt"
	"net/http"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pairchat"

type Observer struct {
	registry   *prometheus.Registry
	admissions prometheus.Counter
	turns      *prometheus.CounterVec
	denials    *prometheus.CounterVec
	tokens     prometheus.Counter
	flags      *prometheus.CounterVec
	violations *prometheus.CounterVec
}

var _ ports.TurnObserver = (*Observer)(nil)

// NewObserver registers the turn counters, plus the Go runtime and process
// collectors, on a fresh registry.
func NewObserver() (*Observer, error) {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		admissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admissions_total",
			Help:      "Turns admitted by the quota guard.",
		}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Finished turns by outcome.",
		}, []string{"outcome"}),
		denials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "denials_total",
			Help:      "Denied turns by reason.",
		}, []string{"reason"}),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_recorded_total",
			Help:      "Tokens credited to the usage ledger.",
		}),
		flags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_flags_total",
			Help:      "Usage entries queued for reconciliation by reason.",
		}, []string{"reason"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redaction_violations_total",
			Help:      "Composed prompts rejected by redaction policy.",
		}, []string{"layer", "category"}),
	}

	for _, collector := range []prometheus.Collector{
		o.admissions, o.turns, o.denials, o.tokens, o.flags, o.violations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := o.registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register metrics collector: %w", err)
		}
	}

	return o, nil
}

func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{Registry: o.registry})
}

func (o *Observer) Gatherer() prometheus.Gatherer {
	return o.registry
}

func (o *Observer) Admitted(domain.AccountID) {
	o.admissions.Inc()
}

func (o *Observer) Denied(_ domain.AccountID, reason domain.DenyReason) {
	o.turns.WithLabelValues(string(domain.TurnOutcomeDenied)).Inc()
	o.denials.WithLabelValues(string(reason)).Inc()
}

func (o *Observer) Recorded(_ domain.AccountID, tokens int64) {
	o.turns.WithLabelValues(string(domain.TurnOutcomeOK)).Inc()
	if tokens > 0 {
		o.tokens.Add(float64(tokens))
	}
}

// Flagged turns still delivered a response, so they count as ok.
func (o *Observer) Flagged(_ domain.AccountID, reason domain.ReconcileReason) {
	o.turns.WithLabelValues(string(domain.TurnOutcomeOK)).Inc()
	o.flags.WithLabelValues(string(reason)).Inc()
}

func (o *Observer) PolicyViolation(layerID string, category domain.RedactionCategory) {
	o.turns.WithLabelValues(string(domain.TurnOutcomePolicyViolation)).Inc()
	o.violations.WithLabelValues(layerID, string(category)).Inc()
}

func (o *Observer) UpstreamFailed(domain.AccountID) {
	o.turns.WithLabelValues(string(domain.TurnOutcomeUpstreamError)).Inc()
}
