package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	EventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "univ2",
		Subsystem: "exchange",
		Name:      "events_handled_total",
		Help:      "Total events handled, by outcome",
	}, []string{"chain", "event", "outcome"})

	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "univ2",
		Subsystem: "exchange",
		Name:      "handler_duration_seconds",
		Help:      "Event handler duration including commit",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"chain", "event"})

	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "univ2",
		Subsystem: "exchange",
		Name:      "pair_registrations_total",
		Help:      "Total new pair registrations, by outcome",
	}, []string{"chain", "outcome"})

	MetadataLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "univ2",
		Subsystem: "tokens",
		Name:      "metadata_lookups_total",
		Help:      "Total token metadata lookups, by the source that answered",
	}, []string{"source"})

	MetadataRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "univ2",
		Subsystem: "tokens",
		Name:      "metadata_call_retries_total",
		Help:      "Total retried token contract calls",
	}, []string{"method"})

	EventsOutOfOrder = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "univ2",
		Subsystem: "pipeline",
		Name:      "events_out_of_order_total",
		Help:      "Total events received behind the last handled position of their chain",
	}, []string{"chain"})
)

// Serve exposes the default registry on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("listen_addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
