// Package validation detecta injeção em payloads, valida o formato das
// requisições de pagamento e reúne validadores de dados brasileiros
// (CPF, CNPJ, CEP, telefone).
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Assinaturas de XSS/injeção de script, sempre case-insensitive.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)<iframe`),
	regexp.MustCompile(`(?i)<object`),
	regexp.MustCompile(`(?i)<embed`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)expression\s*\(`),
}

// DetectInjection informa se text contém alguma das assinaturas conhecidas.
// Qualquer ocorrência conta, inclusive dentro de valores de campos ignorados.
func DetectInjection(text string) bool {
	for _, p := range injectionPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

var ErrInvalidJSON = errors.New("validation: invalid json body")

// DecodeJSON lê exatamente um valor JSON de r. Números ficam como json.Number
// para que a validação distinga inteiro de fracionário.
func DecodeJSON(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Join(ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrInvalidJSON
	}
	return v, nil
}

// CanonicalJSON re-serializa v sem escapar HTML, de modo que "<script"
// no corpo original volte a ser "<script" antes da varredura.
func CanonicalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// CanonicalExcerpt devolve no máximo limit bytes da forma canônica de v
// (sem cortar um caractere ao meio) e o tamanho total em bytes.
func CanonicalExcerpt(v any, limit int) (excerpt string, size int) {
	s, err := CanonicalJSON(v)
	if err != nil {
		return "", 0
	}
	if len(s) <= limit {
		return s, len(s)
	}
	cut := max(limit, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut], len(s)
}

// DetectInjectionJSON varre a forma canônica de um valor já decodificado.
func DetectInjectionJSON(v any) bool {
	s, err := CanonicalJSON(v)
	if err != nil {
		return false
	}
	return DetectInjection(s)
}
