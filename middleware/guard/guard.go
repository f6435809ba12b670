// Package guard reúne os middlewares de borda que não dependem de estado:
// headers de segurança, validação de headers da requisição e recuperação de
// panic com resposta JSON genérica.
package guard

import (
	"net/http"
	"runtime/debug"
	"strings"

	"checkout-gateway/internal/clientip"
	"checkout-gateway/internal/httpx"
	"checkout-gateway/internal/validation"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// DefaultCSP libera apenas os domínios do Stripe e as fontes do Google.
const DefaultCSP = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://js.stripe.com; " +
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; " +
	"font-src 'self' https://fonts.gstatic.com; " +
	"img-src 'self' data: https:; " +
	"connect-src 'self' https://api.stripe.com; " +
	"frame-src https://js.stripe.com https://hooks.stripe.com;"

const (
	MsgInvalidUserAgent   = "User-Agent inválido"
	MsgInvalidContentType = "Content-Type deve ser application/json"
	MsgOriginNotAllowed   = "Origem não permitida"
	MsgInternalError      = "Erro interno do servidor"
)

// SecurityHeaders grava os headers antes do próximo handler, então valem
// também para respostas 429/400 dos middlewares seguintes.
func SecurityHeaders(csp string) func(http.Handler) http.Handler {
	if csp == "" {
		csp = DefaultCSP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}

// InvalidRequestRecorder recebe as rejeições do gate (log de segurança).
type InvalidRequestRecorder interface {
	InvalidRequest(ip, path, reason, userAgent string)
}

type GateOptions struct {
	// Prefix delimita as rotas verificadas; padrão "/api/".
	Prefix string
	// Rotas que contêm WebhookMarker não passam pelo gate (chamadas do
	// processador não mandam User-Agent de navegador).
	WebhookMarker string
	MinUserAgent  int
	// AllowedOrigins vazio desliga a checagem de Origin.
	AllowedOrigins []string
	Events         InvalidRequestRecorder
	IPFn           func(*http.Request) string
}

// RequestGate exige User-Agent plausível nas rotas da API e
// Content-Type JSON nos POSTs.
func RequestGate(opts GateOptions) func(http.Handler) http.Handler {
	if opts.Prefix == "" {
		opts.Prefix = "/api/"
	}
	if opts.WebhookMarker == "" {
		opts.WebhookMarker = "/webhooks/"
	}
	if opts.MinUserAgent <= 0 {
		opts.MinUserAgent = 10
	}
	if opts.IPFn == nil {
		opts.IPFn = clientip.FromRequest
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if !strings.HasPrefix(path, opts.Prefix) || strings.Contains(path, opts.WebhookMarker) {
				next.ServeHTTP(w, r)
				return
			}

			reject := func(status int, msg string) {
				if opts.Events != nil {
					opts.Events.InvalidRequest(opts.IPFn(r), path, msg, r.UserAgent())
				}
				httpx.WriteError(w, status, msg)
			}

			if len(r.UserAgent()) < opts.MinUserAgent {
				reject(http.StatusBadRequest, MsgInvalidUserAgent)
				return
			}
			if r.Method == http.MethodPost {
				if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
					reject(http.StatusBadRequest, MsgInvalidContentType)
					return
				}
				origin := r.Header.Get("Origin")
				if len(opts.AllowedOrigins) > 0 && origin != "" && !validation.ValidateOrigin(origin, opts.AllowedOrigins) {
					reject(http.StatusForbidden, MsgOriginNotAllowed)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Recover transforma panic em 500 genérico, sem vazar detalhes ao cliente.
// http.ErrAbortHandler é repassado.
func Recover(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")
				httpx.WriteError(w, http.StatusInternalServerError, MsgInternalError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
