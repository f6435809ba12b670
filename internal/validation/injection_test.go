package validation

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectInjection(t *testing.T) {
	hits := []string{
		"<script>alert(1)</script>",
		"<SCRIPT src=x>",
		"javascript:alert(1)",
		`<img src=x onerror = "x">`,
		"data:text/html;base64,AAAA",
		"VBScript:msgbox",
		"<iframe src=//evil>",
		"<object data=x>",
		"<embed src=x>",
		"eval (document.cookie)",
		"width: expression(alert(1))",
	}
	for _, s := range hits {
		assert.Truef(t, DetectInjection(s), "expected hit for %q", s)
	}

	misses := []string{
		`{"amount":100,"currency":"brl"}`,
		"Rua das Flores, 123",
		"evaluation",
		"",
	}
	for _, s := range misses {
		assert.Falsef(t, DetectInjection(s), "expected miss for %q", s)
	}
}

func TestDecodeJSON(t *testing.T) {
	v, err := DecodeJSON(strings.NewReader(`{"amount":1000,"currency":"brl"}`))
	require.NoError(t, err)
	assert.IsType(t, map[string]any{}, v)

	_, err = DecodeJSON(strings.NewReader(`{"amount":`))
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = DecodeJSON(strings.NewReader(`{} {}`))
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, err = DecodeJSON(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestDetectInjectionJSON_SeesThroughUnicodeEscapes(t *testing.T) {
	v, err := DecodeJSON(strings.NewReader(`{"amount":1000,"currency":"brl","metadata":{"note":"<script>alert(1)"}}`))
	require.NoError(t, err)
	assert.True(t, DetectInjectionJSON(v))

	clean, err := DecodeJSON(strings.NewReader(`{"amount":100,"currency":"brl"}`))
	require.NoError(t, err)
	assert.False(t, DetectInjectionJSON(clean))
}

func TestCanonicalJSON_KeepsNumbersAsWritten(t *testing.T) {
	v, err := DecodeJSON(strings.NewReader(`{"b":1.50,"a":"<x>"}`))
	require.NoError(t, err)

	s, err := CanonicalJSON(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<x>","b":1.50}`, s)
}

func TestCanonicalExcerpt(t *testing.T) {
	body, err := DecodeJSON(strings.NewReader(`{"b":"` + strings.Repeat("ç", 1000) + `","a":1}`))
	require.NoError(t, err)

	excerpt, size := CanonicalExcerpt(body, 64)
	assert.LessOrEqual(t, len(excerpt), 64)
	assert.True(t, utf8.ValidString(excerpt))
	assert.True(t, strings.HasPrefix(excerpt, `{"a":1,"b":"çç`))
	assert.Equal(t, len(`{"a":1,"b":""}`)+2000, size)

	small, size := CanonicalExcerpt(map[string]any{"a": "x"}, 64)
	assert.Equal(t, `{"a":"x"}`, small)
	assert.Equal(t, len(small), size)
}
