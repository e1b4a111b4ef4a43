// Package metrics counts what a run did and exports it in the Prometheus
// textfile format for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reactionwatch"

// Run holds the metrics of a single invocation on a private registry.
type Run struct {
	registry *prometheus.Registry

	items         *prometheus.CounterVec
	fetched       prometheus.Counter
	newReactions  prometheus.Counter
	fetchFailures *prometheus.CounterVec
	seenEntries   prometheus.Gauge
	duration      prometheus.Gauge
	lastSuccess   prometheus.Gauge
	notifications prometheus.Counter
}

func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Authored items examined, by kind.",
		}, []string{"kind"}),
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_fetched_total",
			Help:      "Reactions returned by GitHub, self-reactions included.",
		}),
		newReactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_reactions_total",
			Help:      "Reactions reported in the digest.",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaction_fetch_failures_total",
			Help:      "Items whose reactions could not be fetched, by kind.",
		}, []string{"kind"}),
		seenEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seen_entries",
			Help:      "Item entries held in the seen-state after the run.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed without error.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Digests delivered.",
		}),
	}

	r.registry.MustRegister(
		r.items, r.fetched, r.newReactions, r.fetchFailures,
		r.seenEntries, r.duration, r.lastSuccess, r.notifications,
	)
	return r
}

func (r *Run) ItemSeen(kind string) { r.items.WithLabelValues(kind).Inc() }
func (r *Run) ReactionsFetched(n int) { r.fetched.Add(float64(n)) }
func (r *Run) NewReactions(n int) { r.newReactions.Add(float64(n)) }
func (r *Run) FetchFailed(kind string) { r.fetchFailures.WithLabelValues(kind).Inc() }
func (r *Run) SeenEntries(n int) { r.seenEntries.Set(float64(n)) }
func (r *Run) NotificationSent() { r.notifications.Inc() }
func (r *Run) Finished(d time.Duration) { r.duration.Set(d.Seconds()) }
func (r *Run) Succeeded(at time.Time) { r.lastSuccess.Set(float64(at.Unix())) }

// Registry exposes the underlying registry for tests and custom exporters.
func (r *Run) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile atomically writes the metrics to path. An empty path is a no-op.
func (r *Run) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
