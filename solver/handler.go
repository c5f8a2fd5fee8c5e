package solver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"solver-gateway/solver/application"
	"solver-gateway/solver/domain"
	"solver-gateway/web"

	"go.uber.org/zap"
)

const (
	SolvePath = "/ui/solve"
	RunsPath  = "/ui/runs"
	StatsPath = "/ui/stats"

	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// Runner é o que o handler precisa do application.Service.
type Runner interface {
	Submit(ctx context.Context, session domain.SessionKey, p domain.Params) (domain.Job, error)
	Status(ctx context.Context, session domain.SessionKey) ([]string, error)
	Cancel(session domain.SessionKey) bool
	Runs(ctx context.Context, limit int) ([]domain.Run, error)
	Running() int
	Slots() (inUse, capacity int)
}

type Options struct {
	Service Runner
	Logger  *zap.Logger
	Stats   domain.StatsStore
	// StatsReader alimenta GET /ui/stats; sem ele o endpoint mostra só o
	// estado das execuções.
	StatsReader domain.StatsReader

	// Sessão
	SessionHeader      string
	TrustXForwardedFor bool
	CookieSecure       bool
	CookieMaxAge       time.Duration

	// Rate limit do polling
	PollLimiter         domain.LimiterStore
	RetryAfter          time.Duration
	AddRateLimitHeaders bool

	// Concorrência do submit
	SubmitMax     int
	SubmitTimeout time.Duration

	// Página
	Title        string
	PollInterval time.Duration
}

type submitResponse struct {
	Job string `json:"job"`
}

type handler struct {
	svc    Runner
	stats  domain.StatsReader
	logger *zap.Logger
	issuer sessionIssuer
	keyFn  KeyFunc
}

// NewHandler monta as rotas do solver com os middlewares.
func NewHandler(opts Options) (http.Handler, error) {
	if opts.Service == nil {
		return nil, errors.New("solver handler: nil service")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SessionHeader == "" {
		opts.SessionHeader = SessionHeader
	}
	if opts.CookieMaxAge <= 0 {
		opts.CookieMaxAge = 24 * time.Hour
	}
	if opts.Title == "" {
		opts.Title = "Solver"
	}

	h := &handler{
		svc:    opts.Service,
		stats:  opts.StatsReader,
		logger: opts.Logger,
		issuer: sessionIssuer{header: opts.SessionHeader, secure: opts.CookieSecure, maxAge: opts.CookieMaxAge},
		keyFn:  SessionKeyFunc(opts.SessionHeader, opts.TrustXForwardedFor),
	}

	page, err := web.Handler(web.Page{
		Title:         opts.Title,
		SolvePath:     SolvePath,
		PollInterval:  opts.PollInterval,
		InvalidInput:  domain.InvalidInputMessage,
		Solving:       domain.SolvingPrefix,
		Sentinel:      domain.SentinelOver,
		NumberPattern: domain.NumberPattern,
	})
	if err != nil {
		return nil, err
	}

	limit := RateLimit(RateLimitOptions{
		Store:               opts.PollLimiter,
		Stats:               opts.Stats,
		Logger:              opts.Logger,
		KeyFn:               h.keyFn,
		RetryAfter:          opts.RetryAfter,
		AddRateLimitHeaders: opts.AddRateLimitHeaders,
	})
	conc := Concurrency(ConcurrencyOptions{
		Max:            opts.SubmitMax,
		AcquireTimeout: opts.SubmitTimeout,
		Logger:         opts.Logger,
	})

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", page)
	mux.Handle("GET /ui/{$}", page)
	mux.Handle("POST "+SolvePath, conc(http.HandlerFunc(h.submit)))
	mux.Handle("GET "+SolvePath, limit(http.HandlerFunc(h.status)))
	mux.HandleFunc("DELETE "+SolvePath, h.cancel)
	mux.HandleFunc("GET "+RunsPath, h.runs)
	mux.HandleFunc("GET "+StatsPath, h.statsSnapshot)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return AccessLog(opts.Logger, h.keyFn)(mux), nil
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, domain.InvalidInputMessage, http.StatusBadRequest)
		return
	}
	p, err := domain.ParseParams(r.PostForm.Get("rn"), r.PostForm.Get("delta"))
	if err != nil {
		http.Error(w, domain.InvalidInputMessage, http.StatusBadRequest)
		return
	}

	session := domain.SessionKey(h.issuer.ensure(w, r))
	job, err := h.svc.Submit(r.Context(), session, p)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrBusy), errors.Is(err, application.ErrClosed):
		w.Header().Set("Retry-After", "1")
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	case errors.Is(err, context.Canceled):
		// cliente foi embora enquanto esperava a vaga
		return
	default:
		h.logger.Error("submit failed", zap.String("session", string(session)), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{Job: job.ID})
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	session := domain.SessionKey(h.keyFn(r))
	toks, err := h.svc.Status(r.Context(), session)
	if err != nil {
		h.logger.Error("status failed", zap.String("session", string(session)), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, toks)
}

func (h *handler) cancel(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Cancel(domain.SessionKey(h.keyFn(r))) {
		http.Error(w, domain.ErrNoJob.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) runs(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []domain.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *handler) statsSnapshot(w http.ResponseWriter, r *http.Request) {
	inUse, capacity := h.svc.Slots()
	resp := domain.StatsSnapshot{
		Running: h.svc.Running(),
		Slots:   domain.SlotUsage{InUse: inUse, Capacity: capacity},
		Events:  domain.Counters{},
	}

	if h.stats != nil {
		events, err := h.stats.Snapshot(r.Context())
		if err != nil {
			h.logger.Error("read stats failed", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		resp.Events = events

		own, err := h.stats.SessionSnapshot(r.Context(), domain.SessionKey(h.keyFn(r)))
		if err != nil {
			h.logger.Warn("read session stats failed", zap.Error(err))
		} else if len(own) > 0 {
			resp.SessionEvents = own
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
