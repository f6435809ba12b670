// Package payment isola o processador de pagamentos (Stripe) atrás de uma
// interface pequena, usada pelos handlers do checkout.
package payment

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")
	ErrNotConfigured    = errors.New("payment: processor not configured")
)

// ProcessorError é uma recusa do processador com mensagem segura para o
// cliente (cartão recusado, parâmetro inválido, ...).
type ProcessorError struct {
	Code       string
	Message    string
	StatusCode int
}

func (e *ProcessorError) Error() string { return e.Message }

type Intent struct {
	ID            string            `json:"id"`
	ClientSecret  string            `json:"-"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	Created       int64             `json:"created"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	Metadata      map[string]string `json:"-"`
}

const StatusSucceeded = "succeeded"

func (i Intent) Succeeded() bool { return i.Status == StatusSucceeded }

// Tipos de evento tratados pelo webhook.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventMethodAttached  = "payment_method.attached"
)

// WebhookEvent é um evento já autenticado pela assinatura.
type WebhookEvent struct {
	ID   string
	Type string
	// Intent vem preenchido nos eventos payment_intent.*.
	Intent *Intent
	// PaymentMethodID vem preenchido nos eventos payment_method.*.
	PaymentMethodID string
}

type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (Intent, error)
	RetrieveIntent(ctx context.Context, id string) (Intent, error)
	// VerifyWebhook valida a assinatura e decodifica o evento.
	// Assinatura ruim devolve um erro que satisfaz errors.Is(err, ErrInvalidSignature).
	VerifyWebhook(payload []byte, signature string) (WebhookEvent, error)
}

// Unconfigured responde ErrNotConfigured em tudo. Usado quando não há
// chave do processador no ambiente.
type Unconfigured struct{}

func (Unconfigured) CreateIntent(context.Context, int64, string, map[string]string) (Intent, error) {
	return Intent{}, ErrNotConfigured
}

func (Unconfigured) RetrieveIntent(context.Context, string) (Intent, error) {
	return Intent{}, ErrNotConfigured
}

func (Unconfigured) VerifyWebhook([]byte, string) (WebhookEvent, error) {
	return WebhookEvent{}, ErrNotConfigured
}
