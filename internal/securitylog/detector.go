package securitylog

import (
	"cmp"
	"slices"
	"time"
)

const (
	ReasonRateLimit      = "Múltiplas violações de rate limit"
	ReasonInvalid        = "Múltiplas requisições inválidas"
	ReasonFailedPayments = "Múltiplas tentativas de pagamento falhadas"
	ReasonBurst          = "Atividade excessiva em pouco tempo"
)

// DetectorConfig define os limites da heurística. Cada regra dispara quando
// a contagem é estritamente maior que o limite, então 0 marca o IP na
// primeira ocorrência. Limites negativos usam o padrão; a config zerada
// inteira equivale a DefaultDetectorConfig.
type DetectorConfig struct {
	LookbackEvents     int           `yaml:"lookback_events"`
	MaxRateLimitEvents int           `yaml:"max_rate_limit_events"`
	MaxInvalidRequests int           `yaml:"max_invalid_requests"`
	MaxFailedPayments  int           `yaml:"max_failed_payments"`
	BurstWindow        time.Duration `yaml:"burst_window"`
	MaxBurstEvents     int           `yaml:"max_burst_events"`
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		LookbackEvents:     50,
		MaxRateLimitEvents: 5,
		MaxInvalidRequests: 10,
		MaxFailedPayments:  3,
		BurstWindow:        5 * time.Minute,
		MaxBurstEvents:     20,
	}
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	d := DefaultDetectorConfig()
	if c == (DetectorConfig{}) {
		return d
	}
	if c.LookbackEvents <= 0 {
		c.LookbackEvents = d.LookbackEvents
	}
	if c.BurstWindow <= 0 {
		c.BurstWindow = d.BurstWindow
	}
	if c.MaxRateLimitEvents < 0 {
		c.MaxRateLimitEvents = d.MaxRateLimitEvents
	}
	if c.MaxInvalidRequests < 0 {
		c.MaxInvalidRequests = d.MaxInvalidRequests
	}
	if c.MaxFailedPayments < 0 {
		c.MaxFailedPayments = d.MaxFailedPayments
	}
	if c.MaxBurstEvents < 0 {
		c.MaxBurstEvents = d.MaxBurstEvents
	}
	return c
}

type Verdict struct {
	Suspicious bool     `json:"isSuspicious"`
	Reasons    []string `json:"reasons"`
}

// DetectSuspiciousPatterns avalia os eventos mais recentes do IP.
func (l *Logger) DetectSuspiciousPatterns(ip string) Verdict {
	now := l.now()
	l.mu.RLock()
	events := l.collect(l.detector.LookbackEvents, func(e Event) bool { return e.IP == ip })
	l.mu.RUnlock()
	return evaluate(l.detector, events, now)
}

func evaluate(cfg DetectorConfig, events []Event, now time.Time) Verdict {
	var rateLimits, invalid, failed, burst int
	for _, e := range events {
		switch e.Kind {
		case KindRateLimit:
			rateLimits++
		case KindInvalidRequest:
			invalid++
		}
		if e.FailedPayment() {
			failed++
		}
		if now.Sub(e.OccurredAt) < cfg.BurstWindow {
			burst++
		}
	}

	v := Verdict{Reasons: []string{}}
	if rateLimits > cfg.MaxRateLimitEvents {
		v.Reasons = append(v.Reasons, ReasonRateLimit)
	}
	if invalid > cfg.MaxInvalidRequests {
		v.Reasons = append(v.Reasons, ReasonInvalid)
	}
	if failed > cfg.MaxFailedPayments {
		v.Reasons = append(v.Reasons, ReasonFailedPayments)
	}
	if burst > cfg.MaxBurstEvents {
		v.Reasons = append(v.Reasons, ReasonBurst)
	}
	v.Suspicious = len(v.Reasons) > 0
	return v
}

type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

type SuspiciousIP struct {
	IP      string   `json:"ip"`
	Reasons []string `json:"reasons"`
}

type Report struct {
	TotalEvents   int            `json:"totalEvents"`
	EventsByKind  map[Kind]int   `json:"eventsByType"`
	TopIPs        []IPCount      `json:"topIPs"`
	SuspiciousIPs []SuspiciousIP `json:"suspiciousIPs"`
	GeneratedAt   time.Time      `json:"generatedAt"`
}

const topIPsLimit = 10

// Report resume o buffer inteiro. TopIPs vem ordenado por contagem
// decrescente e, no empate, pelo IP.
func (l *Logger) Report() Report {
	now := l.now()

	l.mu.RLock()
	all := l.collect(l.size, nil)
	l.mu.RUnlock()

	r := Report{
		TotalEvents:   len(all),
		EventsByKind:  make(map[Kind]int, len(Kinds)),
		TopIPs:        []IPCount{},
		SuspiciousIPs: []SuspiciousIP{},
		GeneratedAt:   now,
	}
	for _, k := range Kinds {
		r.EventsByKind[k] = 0
	}

	perIP := map[string][]Event{}
	for _, e := range all {
		r.EventsByKind[e.Kind]++
		perIP[e.IP] = append(perIP[e.IP], e)
	}

	ranked := make([]IPCount, 0, len(perIP))
	for ip, evs := range perIP {
		ranked = append(ranked, IPCount{IP: ip, Count: len(evs)})
	}
	slices.SortFunc(ranked, func(a, b IPCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.IP, b.IP)
	})
	r.TopIPs = append(r.TopIPs, ranked[:min(topIPsLimit, len(ranked))]...)

	for _, rc := range ranked {
		evs := perIP[rc.IP]
		if len(evs) > l.detector.LookbackEvents {
			evs = evs[len(evs)-l.detector.LookbackEvents:]
		}
		if v := evaluate(l.detector, evs, now); v.Suspicious {
			r.SuspiciousIPs = append(r.SuspiciousIPs, SuspiciousIP{IP: rc.IP, Reasons: v.Reasons})
		}
	}
	return r
}
