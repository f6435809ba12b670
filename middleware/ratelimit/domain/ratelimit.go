package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"math"
	"time"
)

// Key identifica um contador. É sempre o par (IP do cliente, path):
// dois paths do mesmo IP, ou dois IPs no mesmo path, nunca dividem contador.
type Key struct {
	IP   string
	Path string
}

func (k Key) String() string { return k.IP + ":" + k.Path }

// Record é o estado da janela fixa de uma chave.
type Record struct {
	Count   int
	ResetAt time.Time
}

// Policy é o limite aplicado a uma chave.
type Policy struct {
	Class       string
	MaxRequests int
	Window      time.Duration
}

const (
	ClassStrict  = "strict"
	ClassDefault = "default"
)

// WindowStore guarda os contadores de janela fixa.
//
// CheckAndConsume precisa ser atômico por chave: leitura, decisão e
// incremento acontecem na mesma seção crítica.
type WindowStore interface {
	CheckAndConsume(key Key, maxRequests int, window time.Duration, now time.Time) Decision
}

type Decision struct {
	Allowed bool
	// Class e Limit ficam zerados quando a rota não tem limite.
	Class     string
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear
	// (segundos inteiros até ResetAt, arredondado pra cima). Se 0, não há recomendação.
	RetryAfter time.Duration
}

// Limited indica se alguma política foi aplicada na decisão.
func (d Decision) Limited() bool { return d.Limit > 0 }

// FixedWindow aplica a regra de janela fixa sobre o registro atual da chave.
//
// Retorna o próximo registro, se ele deve ser gravado e a decisão. Quando o
// limite já foi atingido o registro não muda: count nunca passa de maxRequests.
func FixedWindow(rec Record, found bool, maxRequests int, window time.Duration, now time.Time) (Record, bool, Decision) {
	if !found || now.After(rec.ResetAt) {
		next := Record{Count: 1, ResetAt: now.Add(window)}
		return next, true, Decision{
			Allowed:   true,
			Limit:     maxRequests,
			Remaining: remaining(maxRequests, next.Count),
			ResetAt:   next.ResetAt,
		}
	}

	if rec.Count >= maxRequests {
		return rec, false, Decision{
			Allowed:    false,
			Limit:      maxRequests,
			Remaining:  0,
			ResetAt:    rec.ResetAt,
			RetryAfter: RetryAfter(rec.ResetAt, now),
		}
	}

	rec.Count++
	return rec, true, Decision{
		Allowed:   true,
		Limit:     maxRequests,
		Remaining: remaining(maxRequests, rec.Count),
		ResetAt:   rec.ResetAt,
	}
}

// RetryAfter devolve os segundos inteiros até resetAt, nunca menos que 1s.
func RetryAfter(resetAt, now time.Time) time.Duration {
	secs := math.Ceil(resetAt.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

func remaining(max, count int) int {
	if count >= max {
		return 0
	}
	return max - count
}
