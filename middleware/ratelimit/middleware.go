package ratelimit

import (
	"net/http"
	"time"

	"checkout-gateway/internal/clientip"
	"checkout-gateway/internal/httpx"
	"checkout-gateway/middleware/ratelimit/application"
	"checkout-gateway/middleware/ratelimit/domain"
)

// DefaultMessage é o texto devolvido no corpo do 429.
const DefaultMessage = "Muitas tentativas. Tente novamente mais tarde."

type KeyFunc func(r *http.Request) domain.Key

// EventRecorder recebe as violações de rate limit (log de segurança).
type EventRecorder interface {
	RateLimit(ip, path, userAgent string)
}

type Options struct {
	Store domain.WindowStore
	// Policies zerado usa application.DefaultPolicies().
	Policies application.Policies
	Stats    domain.StatsStore
	Events   EventRecorder
	// IPFn resolve o IP do cliente; padrão clientip.FromRequest.
	IPFn  func(r *http.Request) string
	KeyFn KeyFunc
	// Bypass libera IPs que nunca são limitados.
	Bypass  func(ip string) bool
	Now     func() time.Time
	Message string
}

// RejectBody é o corpo JSON do 429.
type RejectBody struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

// DefaultKeyFunc monta a chave (IP do cliente, path da requisição).
func DefaultKeyFunc(ipFn func(r *http.Request) string) KeyFunc {
	if ipFn == nil {
		ipFn = clientip.FromRequest
	}
	return func(r *http.Request) domain.Key {
		return domain.Key{IP: ipFn(r), Path: r.URL.Path}
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Policies.Strict.MaxRequests == 0 && opts.Policies.Default.MaxRequests == 0 {
		opts.Policies = application.DefaultPolicies()
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.IPFn)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Message == "" {
		opts.Message = DefaultMessage
	}

	svc := application.Service{
		Store:    opts.Store,
		Policies: opts.Policies,
		Now:      opts.Now,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			if opts.Bypass != nil && opts.Bypass(key.IP) {
				next.ServeHTTP(w, r)
				return
			}

			dec := svc.Decide(key)
			if !dec.Limited() {
				next.ServeHTTP(w, r)
				return
			}

			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     key,
					Class:   dec.Class,
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      opts.Now(),
				})
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", formatInt(dec.Limit))
			h.Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
			h.Set("X-RateLimit-Reset", formatUnixCeil(dec.ResetAt))

			if !dec.Allowed {
				secs := int(dec.RetryAfter / time.Second)
				h.Set("Retry-After", formatInt(secs))
				if opts.Events != nil {
					opts.Events.RateLimit(key.IP, r.URL.Path, r.UserAgent())
				}
				httpx.WriteJSON(w, http.StatusTooManyRequests, RejectBody{
					Error:      opts.Message,
					RetryAfter: secs,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
