// Package clientip resolve o IP do cliente de uma requisição e mantém a lista
// de IPs/CIDRs que não passam pelo rate limit (health checks, monitoração).
package clientip

import (
	"net"
	"net/http"
	"strings"

	"github.com/seancfoley/ipaddress-go/ipaddr"
)

// Loopback é o IP usado quando nenhuma fonte informa o cliente.
const Loopback = "127.0.0.1"

// FromRequest resolve o IP do cliente, nesta ordem:
//
//  1. primeiro item de X-Forwarded-For
//  2. X-Real-IP
//  3. header Remote-Addr
//  4. host de r.RemoteAddr (conexão TCP)
//  5. Loopback
func FromRequest(r *http.Request) string {
	if r == nil {
		return Loopback
	}
	return FromHeaders(r.Header, r.RemoteAddr)
}

func FromHeaders(h http.Header, remoteAddr string) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(h.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(h.Get("Remote-Addr")); ip != "" {
		return ip
	}

	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
		return host
	}
	if remoteAddr != "" {
		return remoteAddr
	}
	return Loopback
}

// Bypass é uma lista de IPs e CIDRs guardada em tries v4/v6.
// O valor zero (ou nil) não contém nenhum IP.
type Bypass struct {
	v4    *ipaddr.IPv4AddressTrie
	v6    *ipaddr.IPv6AddressTrie
	count int
}

// NewBypass monta a lista. Entradas que não são IP nem CIDR voltam em invalid
// e são ignoradas.
func NewBypass(entries []string) (b *Bypass, invalid []string) {
	b = &Bypass{
		v4: &ipaddr.IPv4AddressTrie{},
		v6: &ipaddr.IPv6AddressTrie{},
	}
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		addr, err := ipaddr.NewIPAddressString(raw).ToAddress()
		if err != nil || addr == nil {
			invalid = append(invalid, raw)
			continue
		}
		// 10.0.0.1/8 vale pelo bloco 10.0.0.0/8 inteiro.
		if addr.IsPrefixed() {
			addr = addr.ToPrefixBlock()
		}
		switch {
		case addr.IsIPv4():
			b.v4.Add(addr.ToIPv4())
		case addr.IsIPv6():
			b.v6.Add(addr.ToIPv6())
		default:
			invalid = append(invalid, raw)
			continue
		}
		b.count++
	}
	return b, invalid
}

func (b *Bypass) Len() int {
	if b == nil {
		return 0
	}
	return b.count
}

// Contains informa se ip está em algum item da lista.
func (b *Bypass) Contains(ip string) bool {
	if b == nil || b.count == 0 {
		return false
	}
	addr, err := ipaddr.NewIPAddressString(ip).ToAddress()
	if err != nil || addr == nil {
		return false
	}
	if addr.IsIPv4() {
		return b.v4.ElementContains(addr.ToIPv4())
	}
	if addr.IsIPv6() {
		return b.v6.ElementContains(addr.ToIPv6())
	}
	return false
}
