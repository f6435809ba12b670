// Package metrics expõe os contadores do gateway no formato Prometheus.
//
// Um *Collectors nil (métricas desligadas) aceita todas as chamadas sem efeito.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"checkout-gateway/internal/securitylog"
	"checkout-gateway/middleware/ratelimit/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checkout"

type Config struct {
	Enabled bool
}

type Collectors struct {
	registry *prometheus.Registry

	securityEvents      *prometheus.CounterVec
	paymentAttempts     *prometheus.CounterVec
	rateLimitDecisions  *prometheus.CounterVec
	concurrencyRejected prometheus.Counter
	requestDuration     *prometheus.HistogramVec
}

// New devolve nil quando cfg.Enabled é falso.
func New(cfg Config) *Collectors {
	if !cfg.Enabled {
		return nil
	}

	c := &Collectors{
		registry: prometheus.NewRegistry(),
		securityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_total",
			Help:      "Security events recorded, by type.",
		}, []string{"type"}),
		paymentAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_attempts_total",
			Help:      "Payment intent creation attempts, by outcome.",
		}, []string{"outcome"}),
		rateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limiter decisions, by policy class and outcome.",
		}, []string{"class", "outcome"}),
		concurrencyRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_rejected_total",
			Help:      "Requests rejected because every in-flight slot was taken.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration, by route pattern, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.securityEvents,
		c.paymentAttempts,
		c.rateLimitDecisions,
		c.concurrencyRejected,
		c.requestDuration,
	)
	return c
}

func (c *Collectors) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveSecurityEvent implementa securitylog.Observer.
func (c *Collectors) ObserveSecurityEvent(ev securitylog.Event) {
	if c == nil {
		return
	}
	c.securityEvents.WithLabelValues(string(ev.Kind)).Inc()
	if ev.Kind == securitylog.KindPaymentAttempt {
		outcome := "success"
		if ev.FailedPayment() {
			outcome = "failure"
		}
		c.paymentAttempts.WithLabelValues(outcome).Inc()
	}
}

// Record implementa domain.StatsStore para entrar no fanout de estatísticas
// do rate limit.
func (c *Collectors) Record(_ context.Context, ev domain.StatsEvent) error {
	if c == nil {
		return nil
	}
	outcome := "allowed"
	if !ev.Allowed {
		outcome = "denied"
	}
	class := ev.Class
	if class == "" {
		class = "none"
	}
	c.rateLimitDecisions.WithLabelValues(class, outcome).Inc()
	return nil
}

func (c *Collectors) ConcurrencyRejected() {
	if c == nil {
		return
	}
	c.concurrencyRejected.Inc()
}

// Handler serve /metrics. Com métricas desligadas responde 404.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware mede a duração de cada requisição usando o padrão de rota do chi
// como label (evita cardinalidade alta com ids no path).
func (c *Collectors) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.requestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
