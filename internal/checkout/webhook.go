package checkout

import (
	"errors"
	"io"
	"net/http"

	"checkout-gateway/internal/httpx"
	"checkout-gateway/internal/payment"
)

const (
	msgMissingSignature = "Assinatura do webhook ausente"
	msgInvalidSignature = "Assinatura do webhook inválida"
	msgWebhookFailed    = "Erro ao processar webhook"
)

type webhookAck struct {
	Received bool `json:"received"`
}

func (s *server) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	ip := s.ipFn(r)
	ua := r.UserAgent()
	path := r.URL.Path

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.security.InvalidRequest(ip, path, "Corpo do webhook ilegível", ua)
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		s.security.InvalidRequest(ip, path, msgMissingSignature, ua)
		httpx.WriteError(w, http.StatusBadRequest, msgMissingSignature)
		return
	}

	ev, err := s.gateway.VerifyWebhook(payload, sig)
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		s.security.SuspiciousActivity(ip, path, msgInvalidSignature, ua, map[string]any{"error": err.Error()})
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidSignature)
		return
	case err != nil:
		s.log.Error().Err(err).Msg("webhook verification failed")
		s.security.SuspiciousActivity(ip, path, msgWebhookFailed, ua, nil)
		httpx.WriteError(w, http.StatusInternalServerError, msgWebhookFailed)
		return
	}

	s.security.WebhookReceived(ip, path, ev.Type, ev.ID)
	s.dispatchWebhook(ip, ev)

	httpx.WriteJSON(w, http.StatusOK, webhookAck{Received: true})
}

func (s *server) dispatchWebhook(ip string, ev payment.WebhookEvent) {
	switch ev.Type {
	case payment.EventIntentSucceeded:
		if ev.Intent == nil {
			s.log.Warn().Str("event_id", ev.ID).Msg("payment_intent.succeeded without payment intent")
			return
		}
		s.log.Info().
			Str("event_id", ev.ID).
			Str("payment_intent", ev.Intent.ID).
			Int64("amount", ev.Intent.Amount).
			Str("currency", ev.Intent.Currency).
			Msg("order completed")

	case payment.EventIntentFailed:
		if ev.Intent == nil {
			s.log.Warn().Str("event_id", ev.ID).Msg("payment_intent.payment_failed without payment intent")
			return
		}
		clientIP := ev.Intent.Metadata["client_ip"]
		if clientIP == "" {
			clientIP = ip
		}
		s.security.PaymentAttempt(clientIP, PathCreatePaymentIntent, ev.Intent.Amount, ev.Intent.Currency, false, "")
		s.log.Warn().
			Str("event_id", ev.ID).
			Str("payment_intent", ev.Intent.ID).
			Str("client_ip", clientIP).
			Msg("payment failed")

	case payment.EventMethodAttached:
		s.log.Info().Str("event_id", ev.ID).Str("payment_method", ev.PaymentMethodID).Msg("payment method attached")

	default:
		s.log.Debug().Str("event_id", ev.ID).Str("type", ev.Type).Msg("webhook event ignored")
	}
}
