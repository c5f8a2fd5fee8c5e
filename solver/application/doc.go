// Package application contém os casos de uso do solver: submeter uma execução,
// consultar a saída incremental (polling), cancelar e listar o histórico.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Status(ctx, sessão) devolve os tokens pendentes ou ["over"].
package application
