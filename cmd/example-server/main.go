package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-gateway/internal/httpx"
	"checkout-gateway/internal/logger"
	"checkout-gateway/internal/securitylog"
	"checkout-gateway/middleware/ratelimit"
	"checkout-gateway/middleware/ratelimit/infra"

	"github.com/go-chi/chi/v5"
)

func main() {
	// Exemplo: rate limit e log de segurança direto no seu webserver, sem o
	// checkout completo.
	log, err := logger.New(logger.Options{Format: logger.FormatConsole, Service: "example-server"})
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := infra.NewWindowStore(infra.WithCleanupEvery(time.Minute))
	store.StartJanitor(ctx)

	stats := infra.NewMemoryStatsStore()
	sec := securitylog.New(securitylog.DefaultConfig(), securitylog.WithLogger(log))
	r := newRouter(store, stats, sec)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("example server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}

// newRouter expõe só agregados em /api/stats: a rota não tem autenticação,
// então IPs de clientes e o relatório de segurança ficam de fora.
func newRouter(store *infra.WindowStore, stats *infra.MemoryStatsStore, sec *securitylog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(ratelimit.Middleware(ratelimit.Options{
		Store:  store,
		Stats:  stats,
		Events: sec,
	}))
	r.Use(ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50}))

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"total":          stats.Total(),
			"byRoute":        stats.ByRoute(),
			"securityEvents": sec.Len(),
		})
	})
	return r
}
