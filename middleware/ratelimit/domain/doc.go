// Package domain define contratos e tipos de domínio para rate limit de janela
// fixa e limite de concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A regra de janela fixa (FixedWindow) é uma função pura: recebe o registro
// atual e o relógio, devolve o próximo registro e a decisão.
package domain
