// SPDX-FileCopyrightText: 2021 Open Networking Foundation <info@opennetworking.org>
// Copyright 2019 free5GC.org
//
// SPDX-License-Identifier: Apache-2.0
//

// Package metrics exposes the Attach core's observable counters over
// Prometheus, the role telemetry.go plays for the AMF's ngapMsg and
// gnbSessionProfile stats.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omec-project/mme/context"
	"github.com/omec-project/mme/logger"
)

// AttachStats implements emm.Recorder against a set of Prometheus
// collectors: accepted/rejected/aborted counters by cause, an
// in-flight gauge raised when ATTACH REQUEST creates a context, and a
// T3450 retry histogram.
type AttachStats struct {
	accepted   prometheus.Counter
	rejected   *prometheus.CounterVec
	aborted    prometheus.Counter
	inFlight   prometheus.Gauge
	t3450Retry prometheus.Histogram
}

var attachStats *AttachStats

func initAttachStats() *AttachStats {
	return &AttachStats{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mme_attach_accepted_total",
			Help: "attach procedures that reached ATTACH COMPLETE",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mme_attach_rejected_total",
			Help: "attach procedures rejected, by EMM cause",
		}, []string{"cause"}),
		aborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mme_attach_aborted_total",
			Help: "attach procedures silently aborted on T3450 exhaustion",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mme_attach_in_flight",
			Help: "attach procedures currently past ATTACH REQUEST but not yet resolved",
		}),
		t3450Retry: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mme_attach_t3450_retries",
			Help:    "T3450 retry number observed on each ATTACH ACCEPT retransmission",
			Buckets: prometheus.LinearBuckets(0, 1, int(context.AttachCounterMax)),
		}),
	}
}

func (s *AttachStats) register() error {
	collectors := []prometheus.Collector{s.accepted, s.rejected, s.aborted, s.inFlight, s.t3450Retry}
	for _, c := range collectors {
		prometheus.Unregister(c)
		if err := prometheus.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	attachStats = initAttachStats()
	if err := attachStats.register(); err != nil {
		logger.MetricsLog.Errorln("attach stats register failed", err)
	}
}

// NewAttachStats returns the process-wide AttachStats collector,
// ready to pass as an emm.Recorder.
func NewAttachStats() *AttachStats {
	return attachStats
}

// InitMetrics serves the Prometheus handler, the same /metrics
// exposition point the AMF uses.
func InitMetrics(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.MetricsLog.Errorf("could not open metrics port: %v", err)
	}
}

func (s *AttachStats) AttachAccepted() {
	s.accepted.Inc()
	s.inFlight.Dec()
}

func (s *AttachStats) AttachRejected(cause context.EMMCause) {
	s.rejected.WithLabelValues(cause.String()).Inc()
	s.inFlight.Dec()
}

func (s *AttachStats) AttachAborted() {
	s.aborted.Inc()
	s.inFlight.Dec()
}

func (s *AttachStats) InFlight(delta int) {
	s.inFlight.Add(float64(delta))
}

func (s *AttachStats) T3450Retries(n int32) {
	s.t3450Retry.Observe(float64(n))
}
