// Package metrics exposes Prometheus counters for send and directive activity and an
// HTTP endpoint to scrape them, mirroring the health/metrics server the
// teacher's daemon entrypoint runs alongside its main loop.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts the outcomes of update sessions. The zero value is not
// usable; construct with NewRecorder.
type Recorder struct {
	sendsTotal   *prometheus.CounterVec
	sendRetries  prometheus.Counter
	tsigFailures prometheus.Counter
	rcodeTotal   *prometheus.CounterVec
	directives   *prometheus.CounterVec
	lastSendUnix prometheus.Gauge
}

// NewRecorder registers its counters against reg (use
// prometheus.NewRegistry() in tests to avoid colliding with other
// registrations; pass prometheus.DefaultRegisterer in production).
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		sendsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nsupdate_sends_total",
			Help: "Total number of UPDATE messages transmitted, by outcome.",
		}, []string{"outcome"}),
		sendRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "nsupdate_send_retries_total",
			Help: "Total number of retry attempts made while transmitting an UPDATE message.",
		}),
		tsigFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "nsupdate_tsig_failures_total",
			Help: "Total number of TSIG verification failures on received replies.",
		}),
		rcodeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nsupdate_rcode_total",
			Help: "Total number of UPDATE replies received, by RCODE.",
		}, []string{"rcode"}),
		directives: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nsupdate_directives_total",
			Help: "Total number of directives processed, by name and outcome.",
		}, []string{"directive", "outcome"}),
		lastSendUnix: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nsupdate_last_send_timestamp_seconds",
			Help: "Unix timestamp of the most recent UPDATE transmission.",
		}),
	}
}

// ObserveSend records the outcome label of a send attempt; internal/session
// passes "ok" or "error".
func (r *Recorder) ObserveSend(outcome string) {
	r.sendsTotal.WithLabelValues(outcome).Inc()
	r.lastSendUnix.Set(float64(time.Now().Unix()))
}

// ObserveRetry records one retry attempt made while transmitting an UPDATE.
func (r *Recorder) ObserveRetry() {
	r.sendRetries.Inc()
}

// ObserveTSIGFailure records a TSIG verification failure on a received reply.
func (r *Recorder) ObserveTSIGFailure() {
	r.tsigFailures.Inc()
}

// ObserveReply records a reply's RCODE (textual, e.g. "NOERROR", "REFUSED").
func (r *Recorder) ObserveReply(rcode string) {
	r.rcodeTotal.WithLabelValues(rcode).Inc()
}

// ObserveDirective records a processed directive and whether it succeeded.
func (r *Recorder) ObserveDirective(name string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.directives.WithLabelValues(name, outcome).Inc()
}

// Serve starts an HTTP server on addr exposing /metrics against reg (via
// promhttp), returning once ctx is cancelled and the server has shut down.
// A zero addr disables the server entirely.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, log *slog.Logger) error {
	if addr == "" {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return fmt.Errorf("shutting down metrics server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
