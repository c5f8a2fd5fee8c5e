// Package client é o front-end Go do solver: fala com /ui/solve, faz o
// polling até o sentinela "over" e escreve a saída num Display.
//
// Form reproduz o clique do botão da página: valida, desabilita o botão,
// submete, reabilita e, com sucesso, escreve "Solving:" e inicia o Poller.
package client
