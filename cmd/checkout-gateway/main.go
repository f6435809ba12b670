// Command checkout-gateway serve a API de checkout da loja com as camadas de
// defesa na frente: rate limit por IP e rota, gate de headers, varredura de
// injeção e log de eventos de segurança.
//
// Uso:
//
//	checkout-gateway --env-file .env --listen :8080
//	checkout-gateway -c defense.yaml --log-format console --log-level debug
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-gateway/internal/checkout"
	"checkout-gateway/internal/clientip"
	"checkout-gateway/internal/config"
	"checkout-gateway/internal/logger"
	"checkout-gateway/internal/metrics"
	"checkout-gateway/internal/payment"
	"checkout-gateway/internal/securitylog"
	"checkout-gateway/middleware/ratelimit"
	"checkout-gateway/middleware/ratelimit/application"
	"checkout-gateway/middleware/ratelimit/domain"
	"checkout-gateway/middleware/ratelimit/infra"

	"github.com/alecthomas/kong"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type CLI struct {
	EnvFile   []string `name:"env-file" help:"Arquivos .env carregados antes da configuração (variáveis já definidas vencem)." default:".env.local,.env" sep:","`
	Config    string   `short:"c" help:"Arquivo YAML de políticas de defesa (sobrepõe DEFENSE_CONFIG_FILE)." type:"path"`
	Listen    string   `help:"Endereço de escuta (sobrepõe LISTEN_ADDR)."`
	LogLevel  string   `name:"log-level" help:"Nível de log (debug, info, warn, error)."`
	LogFormat string   `name:"log-format" help:"Formato de log (console, json)."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("checkout-gateway"),
		kong.Description("API de checkout com rate limit e monitoramento de segurança."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(run(cli))
}

func run(cli CLI) error {
	if err := config.LoadEnvFiles(cli.EnvFile...); err != nil {
		return err
	}
	if cli.Config != "" {
		if err := os.Setenv("DEFENSE_CONFIG_FILE", cli.Config); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cli.Listen != "" {
		cfg.ListenAddr = cli.Listen
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.LogFormat = cli.LogFormat
	}

	log, err := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "checkout-gateway",
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mc := metrics.New(metrics.Config{Enabled: cfg.MetricsEnabled})

	secOpts := []securitylog.Option{securitylog.WithLogger(log)}
	if mc != nil {
		secOpts = append(secOpts, securitylog.WithObserver(mc))
	}
	sec := securitylog.New(securitylog.Config{
		Capacity: cfg.SecurityLogCapacity,
		Detector: cfg.Detector,
	}, secOpts...)

	gw := newGateway(cfg, log)

	deps := checkout.Deps{
		Gateway:        gw,
		Security:       sec,
		Log:            log,
		Metrics:        mc,
		AllowedOrigins: cfg.AllowedOrigins,
		AdminToken:     cfg.AdminToken,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}

	var mem *infra.MemoryStatsStore
	if cfg.RateEnabled {
		store := infra.NewWindowStore(
			infra.WithMaxKeys(cfg.RateMaxKeys),
			infra.WithCleanupEvery(cfg.RateCleanupEvery),
		)
		store.StartJanitor(ctx)

		var (
			stats      domain.StatsStore
			closeStats func()
			err        error
		)
		stats, mem, closeStats, err = newStatsStore(ctx, cfg, mc)
		if err != nil {
			return err
		}
		defer closeStats()

		bypass, invalid := clientip.NewBypass(cfg.RateBypassIPs)
		for _, entry := range invalid {
			log.Warn().Str("entry", entry).Msg("ignoring invalid RATE_BYPASS_IPS entry")
		}

		deps.RateLimit = ratelimit.Middleware(ratelimit.Options{
			Store: store,
			Policies: application.Policies{
				Prefix:        cfg.RatePrefix,
				StrictMarkers: cfg.RateStrictMarkers,
				Strict:        domain.Policy{Class: domain.ClassStrict, MaxRequests: cfg.RateStrictMax, Window: cfg.RateWindow},
				Default:       domain.Policy{Class: domain.ClassDefault, MaxRequests: cfg.RateDefaultMax, Window: cfg.RateWindow},
			},
			Stats:  stats,
			Events: sec,
			Bypass: bypass.Contains,
		})
	}

	deps.Concurrency = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.ConcurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.ConcurrencyTimeout,
		OnReject:       mc.ConcurrencyRejected,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           checkout.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("config_file", cfg.ConfigFile).
		Bool("stripe", cfg.StripeSecretKey != "").
		Bool("metrics", mc != nil).
		Bool("admin_routes", cfg.AdminToken != "").
		Msg("checkout gateway listening")
	log.Info().
		Bool("enabled", cfg.RateEnabled).
		Int("strict_max", cfg.RateStrictMax).
		Int("default_max", cfg.RateDefaultMax).
		Dur("window", cfg.RateWindow).
		Strs("strict_markers", cfg.RateStrictMarkers).
		Int("bypass_ips", len(cfg.RateBypassIPs)).
		Msg("rate limit")
	log.Info().
		Bool("redis", cfg.RateStatsEnabled).
		Str("bucket", cfg.RateStatsBucket).
		Dur("ttl", cfg.RateStatsTTL).
		Bool("track_ips", cfg.RateStatsTrackIPs).
		Msg("rate stats")
	log.Info().
		Int("max", cfg.ConcurrencyMax).
		Dur("acquire_timeout", cfg.ConcurrencyTimeout).
		Msg("concurrency")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	if mem != nil {
		total := mem.Total()
		log.Info().
			Int64("allowed", total.Allowed).
			Int64("denied", total.Denied).
			Interface("by_class", mem.ByClass()).
			Msg("rate limit totals")
	}
	log.Info().Int("security_events", sec.Len()).Msg("checkout gateway stopped")
	return nil
}

// newGateway devolve o Stripe atrás do throttle, ou Unconfigured quando não há
// chave (as rotas de pagamento respondem 500 e o resto da API segue no ar).
func newGateway(cfg config.Config, log zerolog.Logger) payment.Gateway {
	sg, err := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
	})
	if err != nil {
		log.Warn().Err(err).Msg("STRIPE_SECRET_KEY not set, payment routes disabled")
		return payment.Unconfigured{}
	}
	if cfg.StripeWebhookSecret == "" {
		log.Warn().Msg("STRIPE_WEBHOOK_SECRET not set, every webhook will be rejected")
	}
	return payment.NewThrottled(sg, cfg.StripeRPS, cfg.StripeBurst)
}

// newStatsStore monta o destino das decisões do rate limit: Redis quando
// configurado, senão contadores em memória (devolvidos em mem para o resumo do
// shutdown). Métricas entram no fanout.
func newStatsStore(ctx context.Context, cfg config.Config, mc *metrics.Collectors) (stats domain.StatsStore, mem *infra.MemoryStatsStore, closeFn func(), err error) {
	var base domain.StatsStore
	closeFn = func() {}

	if cfg.RateStatsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RateStatsRedisAddr,
			Password: cfg.RateStatsRedisPassword,
			DB:       cfg.RateStatsRedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err = rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			_ = rdb.Close()
			return nil, nil, closeFn, fmt.Errorf("redis stats ping: %w", err)
		}
		closeFn = func() { _ = rdb.Close() }

		base = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.RateStatsPrefix),
			infra.WithStatsTTL(cfg.RateStatsTTL),
			infra.WithStatsBucket(cfg.RateStatsBucket),
			infra.WithStatsTrackIPs(cfg.RateStatsTrackIPs),
		)
	} else {
		mem = infra.NewMemoryStatsStore(infra.WithTrackIPs(cfg.RateStatsTrackIPs))
		base = mem
	}

	if mc == nil {
		return base, mem, closeFn, nil
	}
	return infra.NewFanoutStatsStore(base, mc), mem, closeFn, nil
}
