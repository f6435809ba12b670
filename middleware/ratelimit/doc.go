// Package ratelimit fornece adapters HTTP (net/http) para rate limit e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: chave (IP, path), janela fixa e contratos, sem dependência de net/http
//   - application: escolha da política por path e decisão allow/deny; acquire/timeout
//   - infra: contadores em LRU limitado, estatísticas (memória/Redis), semáforo
//   - ratelimit (este pacote): middlewares HTTP + extração da chave + tradução para status/headers
//
// Fluxo no gateway:
//
//  1. Resolve o IP do cliente e monta a chave com o path
//  2. Paths fora de /api/ (ou IPs liberados) seguem direto
//  3. Chama a camada application para obter a decisão
//  4. Se bloqueado, responde 429 em JSON com Retry-After e registra o evento de segurança
//  5. Se permitido, devolve X-RateLimit-Limit/Remaining/Reset e chama o próximo handler
//
// O limite de concorrência (ConcurrencyMiddleware) responde 503 quando não há vaga.
package ratelimit
