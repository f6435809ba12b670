package payment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	g, err := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", WebhookSecret: "whsec_test", Backend: backend})
	require.NoError(t, err)
	return g
}

func TestNewStripeGateway_RequiresKey(t *testing.T) {
	_, err := NewStripeGateway(StripeConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStripeGateway_CreateIntent(t *testing.T) {
	var form url.Values
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"pi_123","object":"payment_intent","amount":1000,"currency":"brl","status":"requires_payment_method","client_secret":"pi_123_secret_abc","created":1700000000}`)
	})

	in, err := g.CreateIntent(context.Background(), 1000, "BRL", map[string]string{"client_ip": "1.2.3.4"})
	require.NoError(t, err)

	assert.Equal(t, "pi_123", in.ID)
	assert.Equal(t, "pi_123_secret_abc", in.ClientSecret)
	assert.Equal(t, int64(1000), in.Amount)

	assert.Equal(t, "1000", form.Get("amount"))
	assert.Equal(t, "brl", form.Get("currency"))
	assert.Equal(t, "card", form.Get("payment_method_types[0]"))
	assert.Equal(t, "1.2.3.4", form.Get("metadata[client_ip]"))
}

func TestStripeGateway_CardErrorBecomesProcessorError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = io.WriteString(w, `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`)
	})

	_, err := g.CreateIntent(context.Background(), 1000, "brl", nil)

	var pe *ProcessorError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "Your card was declined.", pe.Message)
	assert.Equal(t, "card_declined", pe.Code)
	assert.Equal(t, http.StatusPaymentRequired, pe.StatusCode)
}

func TestStripeGateway_RetrieveIntent(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/pi_123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"pi_123","object":"payment_intent","amount":1000,"currency":"brl","status":"succeeded","created":1700000000,"payment_method":"pm_1"}`)
	})

	in, err := g.RetrieveIntent(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.True(t, in.Succeeded())
	assert.Equal(t, "pm_1", in.PaymentMethod)
	assert.Equal(t, int64(1700000000), in.Created)
}

func signed(payload, secret string) string {
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return sp.Header
}

func TestStripeGateway_VerifyWebhook(t *testing.T) {
	g, err := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", WebhookSecret: "whsec_test"})
	require.NoError(t, err)

	payload := `{"id":"evt_1","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_9","object":"payment_intent","amount":500,"currency":"brl","status":"requires_payment_method","metadata":{"client_ip":"9.9.9.9"}}}}`

	ev, err := g.VerifyWebhook([]byte(payload), signed(payload, "whsec_test"))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventIntentFailed, ev.Type)
	require.NotNil(t, ev.Intent)
	assert.Equal(t, "pi_9", ev.Intent.ID)
	assert.Equal(t, "9.9.9.9", ev.Intent.Metadata["client_ip"])

	_, err = g.VerifyWebhook([]byte(payload), signed(payload, "whsec_other"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = g.VerifyWebhook([]byte(payload), "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestStripeGateway_VerifyWebhookPaymentMethod(t *testing.T) {
	g, err := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", WebhookSecret: "whsec_test"})
	require.NoError(t, err)

	payload := `{"id":"evt_2","object":"event","type":"payment_method.attached","data":{"object":{"id":"pm_7","object":"payment_method","type":"card"}}}`
	ev, err := g.VerifyWebhook([]byte(payload), signed(payload, "whsec_test"))
	require.NoError(t, err)
	assert.Equal(t, "pm_7", ev.PaymentMethodID)
	assert.Nil(t, ev.Intent)
}

func TestStripeGateway_VerifyWebhookWithoutSecret(t *testing.T) {
	g, err := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123"})
	require.NoError(t, err)
	_, err = g.VerifyWebhook([]byte(`{}`), "t=1,v1=abc")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
