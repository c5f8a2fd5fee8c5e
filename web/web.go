package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Page são os valores injetados no template.
type Page struct {
	Title        string
	SolvePath    string
	PollInterval time.Duration
	InvalidInput string
	Solving      string
	Sentinel     string
	// NumberPattern é a expressão que o servidor usa para validar rn e delta.
	NumberPattern string
}

// PollMillis é o intervalo do polling em milissegundos, para o script.
func (p Page) PollMillis() int64 {
	if p.PollInterval <= 0 {
		return 1000
	}
	return p.PollInterval.Milliseconds()
}

// Render gera o HTML da página.
func Render(p Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index.html", p); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	return buf.Bytes(), nil
}

// Handler renderiza a página uma vez e serve os bytes prontos.
func Handler(p Page) (http.Handler, error) {
	body, err := Render(p)
	if err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	}), nil
}
