package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "startify"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	pollDuration *prom.HistogramVec
	skipped      *prom.CounterVec
	commands     *prom.CounterVec
	armed        prom.Gauge
	healthCode   prom.Gauge
}

// NewPrometheusRecorder constructs and registers the metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		pollDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of backend polls by source and result",
			Buckets:   prom.DefBuckets,
		}, []string{"source", "result"}),
		skipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_ticks_total",
			Help:      "Ticks dropped because the previous poll of the same source was still in flight",
		}, []string{"source"}),
		commands: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Outbound commands by kind and result",
		}, []string{"command", "result"}),
		armed: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "armed",
			Help:      "1 while the health heartbeat is armed",
		}),
		healthCode: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "health_code",
			Help:      "Current backend health code, 0 when healthy",
		}),
	}
	reg.MustRegister(pr.pollDuration, pr.skipped, pr.commands, pr.armed, pr.healthCode)
	return pr
}

func (p *PrometheusRecorder) ObservePoll(source string, d time.Duration, result Result) {
	if p == nil {
		return
	}
	p.pollDuration.WithLabelValues(source, string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSkippedTick(source string) {
	if p == nil {
		return
	}
	p.skipped.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) IncCommand(command string, result Result) {
	if p == nil {
		return
	}
	p.commands.WithLabelValues(command, string(result)).Inc()
}

func (p *PrometheusRecorder) SetArmed(armed bool) {
	if p == nil {
		return
	}
	if armed {
		p.armed.Set(1)
		return
	}
	p.armed.Set(0)
}

func (p *PrometheusRecorder) SetHealthCode(code int) {
	if p == nil {
		return
	}
	p.healthCode.Set(float64(code))
}

// Serve exposes reg on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, reg *prom.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
