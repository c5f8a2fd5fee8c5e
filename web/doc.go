// Package web guarda a página do solver embutida no binário.
//
// A página tem o formulário (rn, delta), o botão de resolver e o campo de
// saída; o script faz o POST e o polling em /ui/solve.
package web
