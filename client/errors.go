package client

import (
	"errors"
	"fmt"
	"net/http"

	"solver-gateway/solver/domain"
)

var ErrRateLimited = errors.New("rate limited")

// StatusError é uma resposta não-2xx do servidor.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Unwrap mapeia o status para os erros do domínio, para uso com errors.Is.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusBadRequest:
		return domain.ErrInvalidInput
	case http.StatusServiceUnavailable:
		return domain.ErrBusy
	case http.StatusNotFound:
		return domain.ErrNoJob
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}
