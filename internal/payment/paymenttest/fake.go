// Package paymenttest tem um Gateway em memória para testes dos handlers.
package paymenttest

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"checkout-gateway/internal/payment"
)

type CreateCall struct {
	Amount   int64
	Currency string
	Metadata map[string]string
}

// Fake grava as chamadas e devolve respostas configuráveis.
type Fake struct {
	mu sync.Mutex

	CreateErr   error
	RetrieveErr error
	Intents     map[string]payment.Intent

	// Signature é a assinatura aceita por VerifyWebhook; Events mapeia payload -> evento.
	Signature string
	Events    map[string]payment.WebhookEvent
	VerifyErr error

	creates []CreateCall
	seq     int
}

func (f *Fake) CreateIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates = append(f.creates, CreateCall{Amount: amount, Currency: currency, Metadata: maps.Clone(metadata)})
	if f.CreateErr != nil {
		return payment.Intent{}, f.CreateErr
	}
	f.seq++
	id := fmt.Sprintf("pi_test%d", f.seq)
	in := payment.Intent{
		ID:           id,
		ClientSecret: id + "_secret_abc",
		Amount:       amount,
		Currency:     currency,
		Status:       "requires_payment_method",
		Metadata:     maps.Clone(metadata),
	}
	if f.Intents == nil {
		f.Intents = map[string]payment.Intent{}
	}
	f.Intents[id] = in
	return in, nil
}

func (f *Fake) RetrieveIntent(_ context.Context, id string) (payment.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.RetrieveErr != nil {
		return payment.Intent{}, f.RetrieveErr
	}
	in, ok := f.Intents[id]
	if !ok {
		return payment.Intent{}, &payment.ProcessorError{Code: "resource_missing", Message: "No such payment_intent: '" + id + "'", StatusCode: 404}
	}
	return in, nil
}

func (f *Fake) VerifyWebhook(payload []byte, signature string) (payment.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.VerifyErr != nil {
		return payment.WebhookEvent{}, f.VerifyErr
	}
	if signature != f.Signature {
		return payment.WebhookEvent{}, payment.ErrInvalidSignature
	}
	ev, ok := f.Events[string(payload)]
	if !ok {
		return payment.WebhookEvent{}, payment.ErrInvalidSignature
	}
	return ev, nil
}

func (f *Fake) Creates() []CreateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CreateCall(nil), f.creates...)
}
