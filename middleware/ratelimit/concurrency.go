package ratelimit

import (
	"net/http"
	"time"

	"checkout-gateway/internal/httpx"
	"checkout-gateway/middleware/ratelimit/application"
	"checkout-gateway/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	// OnReject é chamado a cada requisição recusada por falta de vaga.
	OnReject func()
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
		OnReject:       opts.OnReject,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				httpx.WriteError(w, opts.RejectStatus, "Servidor ocupado. Tente novamente em instantes.")
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
