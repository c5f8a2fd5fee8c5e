// Package solver fornece os adapters HTTP (net/http) do serviço de solver.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos (sem dependência de net/http)
//   - application: casos de uso (submit, status, cancel, histórico)
//   - infra: solver de gradiente, stores memória/Redis, rate limit, SQLite, janitor
//   - solver (este pacote): rotas, extração de sessão, middlewares e tradução para status/headers
//
// Rotas:
//
//	GET    /, /ui/        página embutida (pacote web)
//	POST   /ui/solve      inicia uma execução (form rn, delta)
//	GET    /ui/solve      drena a saída da sessão (JSON, ["over"] no fim)
//	DELETE /ui/solve      cancela a execução da sessão
//	GET    /ui/runs       histórico recente
//	GET    /healthz
//
// O polling passa pelo RateLimit (429 + Retry-After) e o submit pelo
// Concurrency (503). O AccessLog envolve tudo.
package solver
