// Package checkout monta o roteador HTTP do gateway: middlewares de defesa na
// frente e os handlers de pagamento, webhook e administração atrás.
package checkout

import (
	"net/http"
	"time"

	"checkout-gateway/internal/clientip"
	"checkout-gateway/internal/httpx"
	"checkout-gateway/internal/metrics"
	"checkout-gateway/internal/payment"
	"checkout-gateway/internal/securitylog"
	"checkout-gateway/middleware/guard"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Rotas da API.
const (
	PathCreatePaymentIntent = "/api/create-payment-intent"
	PathVerifyPayment       = "/api/verify-payment"
	PathStripeWebhook       = "/api/webhooks/stripe"
	PathSecurityReport      = "/api/security/report"
	PathSecurityEvents      = "/api/security/events"
	PathPaymentSchema       = "/api/schema/payment-intent"
)

// Deps são as dependências do roteador. Gateway e Security são obrigatórios.
type Deps struct {
	Gateway  payment.Gateway
	Security *securitylog.Logger
	Log      zerolog.Logger
	Metrics  *metrics.Collectors

	// RateLimit e Concurrency são os middlewares de ratelimit já configurados;
	// nil desliga.
	RateLimit   func(http.Handler) http.Handler
	Concurrency func(http.Handler) http.Handler

	AllowedOrigins []string
	// AdminToken vazio desliga as rotas /api/security/*.
	AdminToken   string
	MaxBodyBytes int64

	IPFn func(*http.Request) string
	Now  func() time.Time
}

type server struct {
	gateway    payment.Gateway
	security   *securitylog.Logger
	log        zerolog.Logger
	adminToken string
	maxBody    int64
	ipFn       func(*http.Request) string
	now        func() time.Time
}

// NewRouter monta a cadeia:
//
//	request id -> métricas -> recover -> headers de segurança ->
//	rate limit -> gate de headers -> concorrência -> handler
func NewRouter(d Deps) http.Handler {
	s := &server{
		gateway:    d.Gateway,
		security:   d.Security,
		log:        d.Log,
		adminToken: d.AdminToken,
		maxBody:    d.MaxBodyBytes,
		ipFn:       d.IPFn,
		now:        d.Now,
	}
	if s.gateway == nil {
		s.gateway = payment.Unconfigured{}
	}
	if s.security == nil {
		s.security = securitylog.New(securitylog.DefaultConfig())
	}
	if s.maxBody <= 0 {
		s.maxBody = 1 << 20
	}
	if s.ipFn == nil {
		s.ipFn = clientip.FromRequest
	}
	if s.now == nil {
		s.now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(d.Metrics.Middleware)
	r.Use(guard.Recover(d.Log))
	r.Use(guard.SecurityHeaders(""))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		if d.RateLimit != nil {
			api.Use(d.RateLimit)
		}
		api.Use(guard.RequestGate(guard.GateOptions{
			AllowedOrigins: d.AllowedOrigins,
			Events:         s.security,
			IPFn:           s.ipFn,
		}))
		if d.Concurrency != nil {
			api.Use(d.Concurrency)
		}

		api.Post("/create-payment-intent", s.createPaymentIntent)
		api.Post("/verify-payment", s.verifyPayment)
		api.Post("/webhooks/stripe", s.stripeWebhook)
		api.Get("/schema/payment-intent", s.paymentIntentSchema)
		api.Get("/placeholder/*", s.placeholder)

		if s.adminToken != "" {
			api.Group(func(admin chi.Router) {
				admin.Use(s.requireAdmin)
				admin.Get("/security/report", s.securityReport)
				admin.Get("/security/events", s.securityEvents)
			})
		}

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteError(w, http.StatusNotFound, "Rota não encontrada")
		})
	})

	return r
}
