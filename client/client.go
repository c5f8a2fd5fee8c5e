package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"solver-gateway/solver/domain"

	"go.uber.org/zap"
)

const (
	solvePath = "/ui/solve"
	runsPath  = "/ui/runs"
	statsPath = "/ui/stats"

	sessionHeader = "X-Solver-Session"
	maxErrorBody  = 4 << 10
)

// Client fala com o servidor do solver. O cookie de sessão emitido no
// primeiro submit fica no jar e identifica os polls seguintes.
type Client struct {
	base    *url.URL
	http    *http.Client
	session string
	logger  *zap.Logger
}

type Option func(*Client)

// WithHTTPClient troca o http.Client. Sem Jar, o client recebe um.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithSession envia a sessão no header X-Solver-Session em vez de depender do cookie.
func WithSession(id string) Option {
	return func(c *Client) { c.session = strings.TrimSpace(id) }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Submit inicia uma execução e devolve o id do job.
func (c *Client) Submit(ctx context.Context, rn, delta string) (string, error) {
	form := url.Values{"rn": {rn}, "delta": {delta}}
	req, err := c.newRequest(ctx, http.MethodPost, solvePath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		Job string `json:"job"`
	}
	if err := c.do(req, http.StatusAccepted, &resp); err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	c.logger.Debug("submitted", zap.String("job", resp.Job), zap.String("rn", rn), zap.String("delta", delta))
	return resp.Job, nil
}

// Status devolve os tokens pendentes da sessão.
func (c *Client) Status(ctx context.Context) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, solvePath, nil)
	if err != nil {
		return nil, err
	}
	var toks []string
	if err := c.do(req, http.StatusOK, &toks); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return toks, nil
}

// Cancel interrompe a execução da sessão; domain.ErrNoJob quando não há.
func (c *Client) Cancel(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodDelete, solvePath, nil)
	if err != nil {
		return err
	}
	if err := c.do(req, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	return nil
}

func (c *Client) Runs(ctx context.Context, limit int) ([]domain.Run, error) {
	path := runsPath
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var runs []domain.Run
	if err := c.do(req, http.StatusOK, &runs); err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	return runs, nil
}

// Stats lê os contadores do servidor e, quando há, os da sessão do cliente.
func (c *Client) Stats(ctx context.Context) (domain.StatsSnapshot, error) {
	req, err := c.newRequest(ctx, http.MethodGet, statsPath, nil)
	if err != nil {
		return domain.StatsSnapshot{}, err
	}
	var out domain.StatsSnapshot
	if err := c.do(req, http.StatusOK, &out); err != nil {
		return domain.StatsSnapshot{}, fmt.Errorf("stats: %w", err)
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + ref.Path
	u.RawQuery = ref.RawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.session != "" {
		req.Header.Set(sessionHeader, c.session)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, want int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
