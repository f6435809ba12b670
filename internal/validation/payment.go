package validation

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/invopop/jsonschema"
)

const (
	MinAmount = 50
	MaxAmount = 100_000_000
)

// FieldError descreve uma violação de formato num campo do corpo.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CreatePaymentIntentRequest é o corpo aceito em POST /api/create-payment-intent.
// Campos desconhecidos (inclusive metadata) são ignorados.
type CreatePaymentIntentRequest struct {
	Amount   int64  `json:"amount" jsonschema:"required,minimum=50,maximum=100000000,description=Valor em centavos"`
	Currency string `json:"currency" jsonschema:"required,minLength=3,maxLength=3,pattern=^[a-zA-Z]{3}$,description=Código ISO da moeda"`
}

type VerifyPaymentRequest struct {
	ClientSecret string `json:"client_secret" jsonschema:"required,pattern=^pi_[a-zA-Z0-9]+_secret_[a-zA-Z0-9]+$"`
}

// IntentID devolve o id do PaymentIntent embutido no client secret.
func (r VerifyPaymentRequest) IntentID() string {
	id, _, _ := strings.Cut(r.ClientSecret, "_secret_")
	return id
}

var (
	currencyRe     = regexp.MustCompile(`^[a-zA-Z]{3}$`)
	clientSecretRe = regexp.MustCompile(`^pi_[a-zA-Z0-9]+_secret_[a-zA-Z0-9]+$`)
)

const (
	msgRequired      = "Campo obrigatório"
	msgNotObject     = "O corpo deve ser um objeto JSON"
	msgAmountNumber  = "Valor deve ser um número"
	msgAmountInteger = "Valor deve ser um número inteiro"
	msgAmountMin     = "Valor mínimo é R$ 0,50"
	msgAmountMax     = "Valor máximo é R$ 1.000.000"
	msgCurrencyText  = "Código da moeda deve ser texto"
	msgCurrencyLen   = "Código da moeda deve ter 3 caracteres"
	msgCurrencyAlpha = "Código da moeda deve conter apenas letras"
	msgSecretMissing = "Client secret é obrigatório"
	msgSecretFormat  = "Formato de client secret inválido"
)

// ValidateCreatePaymentIntent valida um corpo decodificado por DecodeJSON.
// Devolve todas as violações encontradas; sem violações o request é válido.
func ValidateCreatePaymentIntent(body any) (CreatePaymentIntentRequest, []FieldError) {
	var req CreatePaymentIntentRequest
	obj, ok := body.(map[string]any)
	if !ok {
		return req, []FieldError{{Field: "", Message: msgNotObject}}
	}

	var errs []FieldError

	switch raw, present := obj["amount"]; {
	case !present || raw == nil:
		errs = append(errs, FieldError{Field: "amount", Message: msgRequired})
	default:
		n, isNum := raw.(json.Number)
		if !isNum {
			errs = append(errs, FieldError{Field: "amount", Message: msgAmountNumber})
			break
		}
		amount, whole := wholeNumber(n)
		switch {
		case !whole:
			errs = append(errs, FieldError{Field: "amount", Message: msgAmountInteger})
		case amount < MinAmount:
			errs = append(errs, FieldError{Field: "amount", Message: msgAmountMin})
		case amount > MaxAmount:
			errs = append(errs, FieldError{Field: "amount", Message: msgAmountMax})
		default:
			req.Amount = amount
		}
	}

	switch raw, present := obj["currency"]; {
	case !present || raw == nil:
		errs = append(errs, FieldError{Field: "currency", Message: msgRequired})
	default:
		s, isStr := raw.(string)
		switch {
		case !isStr:
			errs = append(errs, FieldError{Field: "currency", Message: msgCurrencyText})
		case len(s) != 3:
			errs = append(errs, FieldError{Field: "currency", Message: msgCurrencyLen})
		case !currencyRe.MatchString(s):
			errs = append(errs, FieldError{Field: "currency", Message: msgCurrencyAlpha})
		default:
			req.Currency = s
		}
	}

	return req, errs
}

// ValidateVerifyPayment valida o corpo de POST /api/verify-payment.
func ValidateVerifyPayment(body any) (VerifyPaymentRequest, []FieldError) {
	var req VerifyPaymentRequest
	obj, ok := body.(map[string]any)
	if !ok {
		return req, []FieldError{{Field: "", Message: msgNotObject}}
	}
	s, _ := obj["client_secret"].(string)
	if s == "" {
		return req, []FieldError{{Field: "client_secret", Message: msgSecretMissing}}
	}
	if !clientSecretRe.MatchString(s) {
		return req, []FieldError{{Field: "client_secret", Message: msgSecretFormat}}
	}
	req.ClientSecret = s
	return req, nil
}

// wholeNumber aceita inteiros escritos como 1000, 1000.0 ou 1e3.
func wholeNumber(n json.Number) (int64, bool) {
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	}
	return int64(f), true
}

// PaymentIntentSchema publica o JSON Schema do corpo de criação de pagamento.
func PaymentIntentSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	return r.Reflect(&CreatePaymentIntentRequest{})
}
