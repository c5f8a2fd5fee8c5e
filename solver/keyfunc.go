package solver

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SessionCookie = "solver_session"
	SessionHeader = "X-Solver-Session"
)

type KeyFunc func(r *http.Request) string

// SessionKeyFunc identifica a sessão na ordem: cookie, header, primeiro IP
// do X-Forwarded-For (se confiável) e por fim o host do RemoteAddr.
func SessionKeyFunc(header string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if v := cookieSession(r); v != "" {
			return v
		}
		if header != "" {
			if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
				return v
			}
		}

		if trustXFF {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				ip, _, _ := strings.Cut(xff, ",")
				if ip = strings.TrimSpace(ip); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

func cookieSession(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

type sessionIssuer struct {
	header string
	secure bool
	maxAge time.Duration
}

// ensure devolve a sessão explícita do request (cookie ou header) ou cria
// uma nova e a grava no cookie da resposta.
func (s sessionIssuer) ensure(w http.ResponseWriter, r *http.Request) string {
	if v := cookieSession(r); v != "" {
		return v
	}
	if s.header != "" {
		if v := strings.TrimSpace(r.Header.Get(s.header)); v != "" {
			return v
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	// o restante da cadeia enxerga a sessão recém-criada
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	return id
}
