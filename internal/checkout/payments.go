package checkout

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"checkout-gateway/internal/httpx"
	"checkout-gateway/internal/payment"
	"checkout-gateway/internal/validation"
)

const (
	msgInvalidJSON       = "JSON inválido"
	msgInjection         = "Dados inválidos detectados"
	msgInvalidData       = "Dados inválidos"
	msgAmountNotPositive = "O valor deve ser maior que 0"
	msgInternal          = "Erro interno do servidor"

	reasonInjection   = "Tentativa de injeção detectada"
	reasonInvalidBody = "Dados de entrada inválidos"
	reasonInvalidJSON = "Corpo JSON inválido"

	// bodyExcerptBytes limita o trecho do corpo guardado no evento de injeção.
	bodyExcerptBytes = 512
)

// ValidationErrorBody é o 400 de validação de formato.
type ValidationErrorBody struct {
	Error   string                  `json:"error"`
	Details []validation.FieldError `json:"details"`
}

type CreatePaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type VerifyPaymentResponse struct {
	Status        string         `json:"status"`
	PaymentIntent payment.Intent `json:"payment_intent"`
}

// createPaymentIntent: varredura de injeção -> formato -> regra de negócio ->
// processador. Cada etapa que rejeita registra o evento de segurança.
func (s *server) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	ip := s.ipFn(r)
	ua := r.UserAgent()
	path := r.URL.Path

	body, err := validation.DecodeJSON(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.security.InvalidRequest(ip, path, reasonInvalidJSON, ua)
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	if validation.DetectInjectionJSON(body) {
		excerpt, size := validation.CanonicalExcerpt(body, bodyExcerptBytes)
		s.security.SuspiciousActivity(ip, path, reasonInjection, ua, map[string]any{
			"body":      excerpt,
			"bodyBytes": size,
		})
		httpx.WriteError(w, http.StatusBadRequest, msgInjection)
		return
	}

	req, fieldErrs := validation.ValidateCreatePaymentIntent(body)
	if len(fieldErrs) > 0 {
		s.log.Debug().Interface("errors", fieldErrs).Str("ip", ip).Msg("payment intent validation failed")
		s.security.InvalidRequest(ip, path, reasonInvalidBody, ua)
		httpx.WriteJSON(w, http.StatusBadRequest, ValidationErrorBody{Error: msgInvalidData, Details: fieldErrs})
		return
	}

	if req.Amount <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, msgAmountNotPositive)
		return
	}
	currency := strings.ToLower(req.Currency)

	metadata := map[string]string{
		"integration_check": "accept_a_payment",
		"created_at":        s.now().UTC().Format(time.RFC3339),
		"client_ip":         ip,
	}

	intent, err := s.gateway.CreateIntent(r.Context(), req.Amount, currency, metadata)
	if err != nil {
		s.security.PaymentAttempt(ip, path, req.Amount, currency, false, ua)
		s.writeProcessorError(w, r, err, "create payment intent failed")
		return
	}

	s.security.PaymentAttempt(ip, path, req.Amount, currency, true, ua)
	s.log.Info().
		Str("payment_intent", intent.ID).
		Int64("amount", req.Amount).
		Str("currency", currency).
		Str("ip", ip).
		Msg("payment intent created")

	httpx.WriteJSON(w, http.StatusOK, CreatePaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	})
}

func (s *server) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ip := s.ipFn(r)
	ua := r.UserAgent()

	body, err := validation.DecodeJSON(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.security.InvalidRequest(ip, r.URL.Path, reasonInvalidJSON, ua)
		httpx.WriteError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	req, fieldErrs := validation.ValidateVerifyPayment(body)
	if len(fieldErrs) > 0 {
		s.security.InvalidRequest(ip, r.URL.Path, fieldErrs[0].Message, ua)
		httpx.WriteError(w, http.StatusBadRequest, fieldErrs[0].Message)
		return
	}

	intent, err := s.gateway.RetrieveIntent(r.Context(), req.IntentID())
	if err != nil {
		s.writeProcessorError(w, r, err, "retrieve payment intent failed")
		return
	}

	status := "failed"
	if intent.Succeeded() {
		status = "succeeded"
	}
	httpx.WriteJSON(w, http.StatusOK, VerifyPaymentResponse{Status: status, PaymentIntent: intent})
}

// writeProcessorError repassa recusas do processador como 400; qualquer
// outro erro vira 500 genérico.
func (s *server) writeProcessorError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var pe *payment.ProcessorError
	if errors.As(err, &pe) {
		s.log.Warn().Str("code", pe.Code).Str("path", r.URL.Path).Msg(pe.Message)
		httpx.WriteError(w, http.StatusBadRequest, pe.Message)
		return
	}
	s.log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	httpx.WriteError(w, http.StatusInternalServerError, msgInternal)
}
