package application

import (
	"strings"
	"time"

	"checkout-gateway/middleware/ratelimit/domain"
)

// Policies escolhe o limite de cada path.
//
// Só paths sob Prefix são limitados. Paths que contêm algum StrictMarker
// (pagamento, webhook) usam Strict; o resto usa Default.
type Policies struct {
	Prefix        string
	StrictMarkers []string
	Strict        domain.Policy
	Default       domain.Policy
}

// DefaultPolicies reproduz os limites da loja: janela de 15 minutos,
// 10 requisições nas rotas sensíveis e 100 nas demais.
func DefaultPolicies() Policies {
	return Policies{
		Prefix:        "/api/",
		StrictMarkers: []string{"payment", "webhook"},
		Strict:        domain.Policy{Class: domain.ClassStrict, MaxRequests: 10, Window: 15 * time.Minute},
		Default:       domain.Policy{Class: domain.ClassDefault, MaxRequests: 100, Window: 15 * time.Minute},
	}
}

// For devolve a política do path, ou ok=false quando o path não é limitado.
func (p Policies) For(path string) (domain.Policy, bool) {
	if p.Prefix != "" && !strings.HasPrefix(path, p.Prefix) {
		return domain.Policy{}, false
	}
	for _, m := range p.StrictMarkers {
		if m != "" && strings.Contains(path, m) {
			return p.Strict, true
		}
	}
	return p.Default, true
}

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store    domain.WindowStore
	Policies Policies
	Now      func() time.Time
}

func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	pol, ok := s.Policies.For(key.Path)
	if !ok || pol.MaxRequests <= 0 || pol.Window <= 0 {
		return domain.Decision{Allowed: true}
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	dec := s.Store.CheckAndConsume(key, pol.MaxRequests, pol.Window, now)
	dec.Class = pol.Class
	return dec
}
