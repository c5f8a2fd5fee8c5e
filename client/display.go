package client

import (
	"fmt"
	"io"
	"sync"
)

// Display é o campo de saída.
type Display interface {
	SetText(s string)
	// Append acrescenta s ao texto atual, separado por espaço.
	Append(s string)
}

// TextField guarda o texto em memória.
type TextField struct {
	mu   sync.Mutex
	text string
}

func (f *TextField) SetText(s string) {
	f.mu.Lock()
	f.text = s
	f.mu.Unlock()
}

func (f *TextField) Append(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.text == "" {
		f.text = s
		return
	}
	f.text += " " + s
}

func (f *TextField) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

// WriterDisplay escreve cada atualização como uma linha. Um terminal não
// reescreve o texto anterior, então SetText e Append só diferem no nome.
type WriterDisplay struct {
	mu sync.Mutex
	W  io.Writer
}

func NewWriterDisplay(w io.Writer) *WriterDisplay { return &WriterDisplay{W: w} }

func (d *WriterDisplay) SetText(s string) { d.line(s) }
func (d *WriterDisplay) Append(s string)  { d.line(s) }

func (d *WriterDisplay) line(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = fmt.Fprintln(d.W, s)
}

// Button registra as transições de estado, do jeito que a página faz com disabled.
type Button struct {
	mu       sync.Mutex
	disabled bool
	history  []bool
}

func (b *Button) Disable() { b.set(true) }
func (b *Button) Enable()  { b.set(false) }

func (b *Button) set(disabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disabled = disabled
	b.history = append(b.history, disabled)
}

func (b *Button) Disabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disabled
}

// History devolve os estados pelos quais o botão passou (true = desabilitado).
func (b *Button) History() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.history...)
}
