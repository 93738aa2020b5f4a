package services

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "run_bazaar_runs_submitted_total",
		Help: "Number of training runs accepted and dispatched.",
	})

	configRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "run_bazaar_config_rejections_total",
		Help: "Number of run submissions rejected because the config failed to load or validate.",
	})
)

type TelemetryService struct{}

func (s *TelemetryService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.Handler())

	return r
}
