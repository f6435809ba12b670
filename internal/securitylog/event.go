package securitylog

import (
	"maps"
	"time"
)

type Kind string

const (
	KindRateLimit          Kind = "rate_limit"
	KindInvalidRequest     Kind = "invalid_request"
	KindPaymentAttempt     Kind = "payment_attempt"
	KindWebhookReceived    Kind = "webhook_received"
	KindSuspiciousActivity Kind = "suspicious_activity"
)

// Kinds lista todos os tipos conhecidos, na ordem usada pelos relatórios.
var Kinds = []Kind{
	KindRateLimit,
	KindInvalidRequest,
	KindPaymentAttempt,
	KindWebhookReceived,
	KindSuspiciousActivity,
}

// Event é um registro imutável depois de gravado no log.
type Event struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"type"`
	IP         string         `json:"ip"`
	Path       string         `json:"path"`
	UserAgent  string         `json:"userAgent,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	OccurredAt time.Time      `json:"timestamp"`
}

func (e Event) clone() Event {
	if e.Details != nil {
		e.Details = maps.Clone(e.Details)
	}
	return e
}

// FailedPayment informa se o evento é uma tentativa de pagamento recusada.
func (e Event) FailedPayment() bool {
	if e.Kind != KindPaymentAttempt {
		return false
	}
	ok, isBool := e.Details["success"].(bool)
	return isBool && !ok
}
