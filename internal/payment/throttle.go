package payment

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled limita o ritmo de chamadas ao processador com um token bucket
// compartilhado por todo o processo. Verificar webhook é local e não passa
// pelo limiter.
type Throttled struct {
	next    Gateway
	limiter *rate.Limiter
}

// NewThrottled devolve next sem alteração quando rps <= 0.
func NewThrottled(next Gateway, rps float64, burst int) Gateway {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("payment throttle: %w", err)
	}
	return nil
}

func (t *Throttled) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (Intent, error) {
	if err := t.wait(ctx); err != nil {
		return Intent{}, err
	}
	return t.next.CreateIntent(ctx, amount, currency, metadata)
}

func (t *Throttled) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	if err := t.wait(ctx); err != nil {
		return Intent{}, err
	}
	return t.next.RetrieveIntent(ctx, id)
}

func (t *Throttled) VerifyWebhook(payload []byte, signature string) (WebhookEvent, error) {
	return t.next.VerifyWebhook(payload, signature)
}
