// Package application contém os casos de uso (regras de aplicação) para rate limit
// e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Decide(key) escolhe a política do path (strict/default) e
// retorna uma Decision (allow/deny + remaining + retry-after).
package application
