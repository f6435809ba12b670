package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

const maxSanitizedRunes = 1000

var (
	emailRe       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	dangerousRepl = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "")
)

// SanitizeString remove espaços nas pontas e os caracteres <>"'& e limita o
// resultado a 1000 caracteres.
func SanitizeString(input string) string {
	s := dangerousRepl.Replace(strings.TrimSpace(input))
	if utf8.RuneCountInString(s) <= maxSanitizedRunes {
		return s
	}
	return string([]rune(s)[:maxSanitizedRunes])
}

func ValidateEmail(email string) bool {
	return len(email) <= 254 && emailRe.MatchString(email)
}

// ValidateBrazilianPhone aceita 10 ou 11 dígitos com DDD entre 11 e 99.
func ValidateBrazilianPhone(phone string) bool {
	d := digitsOnly(phone)
	if len(d) < 10 || len(d) > 11 {
		return false
	}
	ddd := int(d[0]-'0')*10 + int(d[1]-'0')
	return ddd >= 11 && ddd <= 99
}

func ValidateCEP(cep string) bool {
	return len(digitsOnly(cep)) == 8
}

func ValidateCPF(cpf string) bool {
	d := digitsOnly(cpf)
	if len(d) != 11 || allSame(d) {
		return false
	}
	return cpfDigit(d[:9]) == d[9] && cpfDigit(d[:10]) == d[10]
}

// cpfDigit calcula um dígito verificador com pesos decrescentes a partir de
// len(base)+1.
func cpfDigit(base string) byte {
	sum := 0
	weight := len(base) + 1
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * weight
		weight--
	}
	r := (sum * 10) % 11
	if r == 10 {
		r = 0
	}
	return byte('0' + r)
}

func ValidateCNPJ(cnpj string) bool {
	d := digitsOnly(cnpj)
	if len(d) != 14 || allSame(d) {
		return false
	}
	return cnpjDigit(d[:12]) == d[12] && cnpjDigit(d[:13]) == d[13]
}

// cnpjDigit usa pesos que começam em len(base)-7 e voltam a 9 depois do 2.
func cnpjDigit(base string) byte {
	sum := 0
	pos := len(base) - 7
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * pos
		pos--
		if pos < 2 {
			pos = 9
		}
	}
	r := 0
	if sum%11 >= 2 {
		r = 11 - sum%11
	}
	return byte('0' + r)
}

// ValidateOrigin aceita apenas origens listadas literalmente.
func ValidateOrigin(origin string, allowed []string) bool {
	if origin == "" {
		return false
	}
	return slices.Contains(allowed, origin)
}

// SecureHash devolve o SHA-256 de data em hexadecimal minúsculo.
func SecureHash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
