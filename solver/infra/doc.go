// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - GradientSolver: regressão linear por gradiente descendente, token por época
//   - MemoryJobStore / RedisJobStore: saída incremental por sessão
//   - LimiterStore: token bucket por sessão usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para vagas de execução
//   - SQLiteRecorder: histórico de execuções (modernc.org/sqlite)
//   - Janitor: limpeza periódica agendada com robfig/cron
package infra
