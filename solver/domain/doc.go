// Package domain define contratos e tipos de domínio do solver: parâmetros,
// jobs, tokens de status, histórico de execuções e os limites de uso.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura (Redis, SQLite, x/time/rate).
package domain
