package securitylog

func (l *Logger) RateLimit(ip, path, userAgent string) {
	l.Record(Event{
		Kind:      KindRateLimit,
		IP:        ip,
		Path:      path,
		UserAgent: userAgent,
		Details:   map[string]any{"message": "Rate limit exceeded"},
	})
}

func (l *Logger) InvalidRequest(ip, path, reason, userAgent string) {
	l.Record(Event{
		Kind:      KindInvalidRequest,
		IP:        ip,
		Path:      path,
		UserAgent: userAgent,
		Details:   map[string]any{"reason": reason},
	})
}

// PaymentAttempt registra o resultado de uma criação (ou falha) de pagamento.
// Tentativas com success=false contam para a detecção de abuso.
func (l *Logger) PaymentAttempt(ip, path string, amount int64, currency string, success bool, userAgent string) {
	l.Record(Event{
		Kind:      KindPaymentAttempt,
		IP:        ip,
		Path:      path,
		UserAgent: userAgent,
		Details: map[string]any{
			"amount":   amount,
			"currency": currency,
			"success":  success,
		},
	})
}

func (l *Logger) WebhookReceived(ip, path, eventType, eventID string) {
	l.Record(Event{
		Kind: KindWebhookReceived,
		IP:   ip,
		Path: path,
		Details: map[string]any{
			"eventType": eventType,
			"eventId":   eventID,
		},
	})
}

func (l *Logger) SuspiciousActivity(ip, path, reason, userAgent string, details map[string]any) {
	d := make(map[string]any, len(details)+1)
	for k, v := range details {
		d[k] = v
	}
	d["reason"] = reason
	l.Record(Event{
		Kind:      KindSuspiciousActivity,
		IP:        ip,
		Path:      path,
		UserAgent: userAgent,
		Details:   d,
	})
}
