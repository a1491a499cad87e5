// Package metrics exports service activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/simple-share/pkg/simpleshare"
)

// Sink is a simpleshare.EventSink that counts events.
type Sink struct {
	registry *prometheus.Registry

	uploads  *prometheus.CounterVec
	resolves *prometheus.CounterVec
	deletes  prometheus.Counter
	renames  prometheus.Counter
}

// NewSink creates a sink with its own registry, including the Go runtime
// and process collectors.
func NewSink() *Sink {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Sink{
		registry: reg,
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simpleshare",
			Name:      "uploads_total",
			Help:      "Items stored, by kind.",
		}, []string{"kind"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simpleshare",
			Name:      "resolves_total",
			Help:      "Public lookups, by kind and result.",
		}, []string{"kind", "result"}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simpleshare",
			Name:      "deletes_total",
			Help:      "Items deleted.",
		}),
		renames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simpleshare",
			Name:      "renames_total",
			Help:      "Items renamed.",
		}),
	}
	reg.MustRegister(s.uploads, s.resolves, s.deletes, s.renames)
	return s
}

// Registry returns the registry holding the sink's collectors.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

func (s *Sink) ItemUploaded(ctx context.Context, id string, record *simpleshare.Record) error {
	s.uploads.WithLabelValues(string(record.Kind)).Inc()
	return nil
}

func (s *Sink) ItemResolved(ctx context.Context, id string, kind simpleshare.Kind, err error) error {
	if kind == "" {
		kind = "unknown"
	}
	s.resolves.WithLabelValues(string(kind), resultLabel(err)).Inc()
	return nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, simpleshare.ErrInvalidName), errors.Is(err, simpleshare.ErrNotFound):
		return "not_found"
	case errors.Is(err, simpleshare.ErrInvalidURL):
		return "invalid_url"
	default:
		return "error"
	}
}

func (s *Sink) ItemDeleted(ctx context.Context, id string) error {
	s.deletes.Inc()
	return nil
}

func (s *Sink) ItemRenamed(ctx context.Context, from, to string) error {
	s.renames.Inc()
	return nil
}
