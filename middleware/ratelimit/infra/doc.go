// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - WindowStore: janela fixa por (IP, path) num LRU limitado (golang-lru) com janitor
//   - MemoryStatsStore / RedisStatsStore: estatísticas das decisões (best-effort)
//   - ChanPool: semáforo simples para limite de concorrência
package infra
