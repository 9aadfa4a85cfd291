package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"showcase-tracker/internal/config"
	"showcase-tracker/internal/constants"
	"showcase-tracker/internal/domain"

	"github.com/valyala/fasthttp"
)

const userAgent = "showcase-tracker/1.0"

type Endpoints struct {
	Enka    string
	MicroGG string
	MiniGG  string
	Ambr    string
	Akasha  string
}

var DefaultEndpoints = Endpoints{
	Enka:    "https://enka.network",
	MicroGG: "https://profile.microgg.cn",
	MiniGG:  "https://info.minigg.cn",
	Ambr:    "https://api.ambr.top",
	Akasha:  "https://akasha.cv",
}

// Client talks to every upstream over one fasthttp connection pool.
type Client struct {
	provider  string
	endpoints Endpoints
	client    *fasthttp.Client

	cooldownMu sync.RWMutex
	cooldown   map[string]time.Time
}

func NewClient(cfg *config.Config) *Client {
	return newClient(cfg.SnapshotProvider, DefaultEndpoints)
}

func newClient(provider string, endpoints Endpoints) *Client {
	return &Client{
		provider:  provider,
		endpoints: endpoints,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		cooldown: make(map[string]time.Time),
	}
}

// StatusError is a non-200 upstream answer.
type StatusError struct {
	Host       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Host, e.StatusCode)
}

// Unwrap maps the status onto the domain taxonomy so callers can use
// errors.Is without knowing HTTP.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == fasthttp.StatusTooManyRequests:
		return domain.ErrTransientNetwork
	case e.StatusCode == fasthttp.StatusFailedDependency, e.StatusCode >= 500:
		return domain.ErrUpstreamUnavailable
	}
	return nil
}

// CooldownUntil reports when host may be asked again after a 429.
func (c *Client) CooldownUntil(host string) time.Time {
	c.cooldownMu.RLock()
	defer c.cooldownMu.RUnlock()
	return c.cooldown[host]
}

func (c *Client) updateCooldown(host string, resp *fasthttp.Response) {
	if resp.StatusCode() != fasthttp.StatusTooManyRequests {
		return
	}
	wait := 30 * time.Second
	if v := string(resp.Header.Peek(fasthttp.HeaderRetryAfter)); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			wait = time.Duration(secs) * time.Second
		}
	}
	c.cooldownMu.Lock()
	c.cooldown[host] = time.Now().Add(wait)
	c.cooldownMu.Unlock()
}

// get fetches url and returns a copy of the body. Transport failures and
// timeouts are domain.ErrTransientNetwork.
func (c *Client) get(ctx context.Context, host, url string) ([]byte, error) {
	if until := c.CooldownUntil(host); time.Now().Before(until) {
		return nil, fmt.Errorf("%s rate limited until %s: %w", host, until.Format(time.RFC3339), domain.ErrTransientNetwork)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransientNetwork, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(userAgent)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, constants.ExternalAPITimeout)
	}
	if err != nil {
		return nil, transportError(host, err)
	}

	c.updateCooldown(host, resp)

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &StatusError{Host: host, StatusCode: resp.StatusCode()}
	}
	return append([]byte(nil), resp.Body()...), nil
}

func transportError(host string, err error) error {
	var netErr net.Error
	if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s timed out: %w", host, domain.ErrTransientNetwork)
	}
	return fmt.Errorf("%s: %w: %w", host, domain.ErrTransientNetwork, err)
}
