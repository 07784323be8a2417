// internal/metrics/collector.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "token_launcher"

// Collector управляет набором метрик создания токенов.
type Collector struct {
	launches         *prometheus.CounterVec
	launchDuration   *prometheus.HistogramVec
	vanityIterations prometheus.Histogram
	vanityResults    *prometheus.CounterVec
	metadataURIs     *prometheus.CounterVec
	submitAttempts   *prometheus.CounterVec
	feeLamports      prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewCollector регистрирует метрики в reg. Для *prometheus.Registry
// Handler отдаёт именно его.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "Token launches by final status",
		}, []string{"status"}),
		launchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "launch_duration_seconds",
			Help:      "Launch duration from request to confirmation",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"status"}),
		vanityIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vanity_iterations",
			Help:      "Keypairs generated per vanity search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		vanityResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vanity_searches_total",
			Help:      "Vanity searches by outcome",
		}, []string{"matched"}),
		metadataURIs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_uri_total",
			Help:      "Metadata URIs by source",
		}, []string{"source"}),
		submitAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submit_attempts_total",
			Help:      "Broadcast attempts by signer kind and outcome",
		}, []string{"signer", "outcome"}),
		feeLamports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_fee_lamports_total",
			Help:      "Service fees transferred in confirmed launches",
		}),
	}

	reg.MustRegister(
		c.launches, c.launchDuration, c.vanityIterations, c.vanityResults,
		c.metadataURIs, c.submitAttempts, c.feeLamports,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	} else {
		c.gatherer = prometheus.DefaultGatherer
	}
	return c
}

// RecordLaunch records a finished launch.
func (c *Collector) RecordLaunch(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.launches.WithLabelValues(status).Inc()
	c.launchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (c *Collector) RecordVanity(iterations int, matched bool) {
	c.vanityIterations.Observe(float64(iterations))
	c.vanityResults.WithLabelValues(strconv.FormatBool(matched)).Inc()
}

func (c *Collector) RecordMetadata(source string) {
	c.metadataURIs.WithLabelValues(source).Inc()
}

// RecordSubmit учитывает попытки отправки; все, кроме последней, считаются повторами.
func (c *Collector) RecordSubmit(signerKind string, attempts int, success bool) {
	if attempts > 1 {
		c.submitAttempts.WithLabelValues(signerKind, "retried").Add(float64(attempts - 1))
	}
	outcome := "sent"
	if !success {
		outcome = "failed"
	}
	c.submitAttempts.WithLabelValues(signerKind, outcome).Inc()
}

func (c *Collector) AddFee(lamports uint64) {
	c.feeLamports.Add(float64(lamports))
}

// Handler отдаёт именно его.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "Token launches by final status",
		}, []string{"status"}),
		launchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "launch_duration_seconds",
			Help:      "Launch duration from request to confirmation",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"status"}),
		vanityIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vanity_iterations",
			Help:      "Keypairs generated per vanity search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		vanityResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vanity_searches_total",
			Help:      "Vanity searches by outcome",
		}, []string{"matched"}),
		metadataURIs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metadata_uri_total",
			Help:      "Metadata URIs by source",
		}, []string{"source"}),
		submitAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submit_attempts_total",
			Help:      "Broadcast attempts by signer kind and outcome",
		}, []string{"signer", "outcome"}),
		feeLamports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_fee_lamports_total",
			Help:      "Service fees transferred in confirmed launches",
		}),
	}

	reg.MustRegister(
		c.launches, c.launchDuration, c.vanityIterations, c.vanityResults,
		c.metadataURIs, c.submitAttempts, c.feeLamports,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	} else {
		c.gatherer = prometheus.DefaultGatherer
	}
	return c
}

// RecordLaunch records a finished launch.
func (c *Collector) RecordLaunch(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.launches.WithLabelValues(status).Inc()
	c.launchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (c *Collector) RecordVanity(iterations int, matched bool) {
	c.vanityIterations.Observe(float64(iterations))
	c.vanityResults.WithLabelValues(strconv.FormatBool(matched)).Inc()
}

func (c *Collector) RecordMetadata(source string) {
	c.metadataURIs.WithLabelValues(source).Inc()
}

// RecordSubmit учитывает попытки отправки; все, кроме последней, считаются повторами.
func (c *Collector) RecordSubmit(signerKind string, attempts int, success bool) {
	if attempts > 1 {
		c.submitAttempts.WithLabelValues(signerKind, "retried").Add(float64(attempts - 1))
	}
	outcome := "sent"
	if !success {
		outcome = "failed"
	}
	c.submitAttempts.WithLabelValues(signerKind, outcome).Inc()
}

func (c *Collector) AddFee(lamports uint64) {
	c.feeLamports.Add(float64(lamports))
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	c.launches.Reset()
	c.launchDuration.Reset()
	c.vanityResults.Reset()
	c.metadataURIs.Reset()
	c.submitAttempts.Reset()
}

// Handler отдаёт метрики в формате Prometheus.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
