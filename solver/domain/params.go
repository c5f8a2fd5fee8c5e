package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// InvalidInputMessage é o texto estático mostrado quando a validação falha.
	InvalidInputMessage = "Invalid input for solver!"

	// SolvingPrefix é o conteúdo inicial do campo de saída após um submit aceito.
	SolvingPrefix = "Solving:"
)

// NumberPattern é a forma decimal aceita nos dois campos. A página usa a
// mesma expressão, então a sintaxe fica no subconjunto comum a RE2 e JS.
// Hexadecimal, "Inf", "NaN" e separadores "_" ficam de fora.
const NumberPattern = `^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`

var numberRe = regexp.MustCompile(NumberPattern)

var ErrInvalidInput = errors.New("invalid input for solver")

// Params são os dois campos numéricos do formulário.
// RN é a taxa (learning rate) e Delta a tolerância de convergência.
type Params struct {
	RN    float64 `json:"rn"`
	Delta float64 `json:"delta"`
}

// ParseParams aceita apenas números finitos e não negativos.
// Espaços em volta são ignorados; string vazia, NaN e Inf são rejeitados.
func ParseParams(rn, delta string) (Params, error) {
	r, err := parseNonNegative(rn)
	if err != nil {
		return Params{}, fmt.Errorf("%w: rn: %v", ErrInvalidInput, err)
	}
	d, err := parseNonNegative(delta)
	if err != nil {
		return Params{}, fmt.Errorf("%w: delta: %v", ErrInvalidInput, err)
	}
	return Params{RN: r, Delta: d}, nil
}

// Valid é a checagem booleana usada pela UI antes de enviar.
func Valid(rn, delta string) bool {
	_, err := ParseParams(rn, delta)
	return err == nil
}

func parseNonNegative(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty")
	}
	if !numberRe.MatchString(s) {
		return 0, fmt.Errorf("not a number %q", s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not finite %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative %q", s)
	}
	return v, nil
}
