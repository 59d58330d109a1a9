// Package proxy forwards the public auth routes of the notes API to the auth
// service. Bodies, the Authorization header and upstream responses pass
// through unchanged; an unreachable upstream surfaces as 502.
package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 10 * time.Second

// Routes maps public paths of the notes API to auth service paths.
var Routes = map[string]string{
	"/create-account": "/register",
	"/login":          "/login",
	"/get-user":       "/me",
	"/users":          "/users",
}

type Config struct {
	// AuthServiceURL is the base URL of the auth service, e.g. http://localhost:8081.
	AuthServiceURL string
	// Timeout bounds the wait for upstream response headers.
	Timeout time.Duration
}

// AuthProxy forwards matched requests to the auth service.
type AuthProxy struct {
	mw echo.MiddlewareFunc
}

func New(cfg Config) (*AuthProxy, error) {
	if cfg.AuthServiceURL == "" {
		return nil, errors.New("auth service url is required")
	}
	target, err := url.Parse(cfg.AuthServiceURL)
	if err != nil {
		return nil, fmt.Errorf("parse auth service url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("auth service url %q must be absolute", cfg.AuthServiceURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = timeout

	rewrite := make(map[string]string, len(Routes))
	for from, to := range Routes {
		rewrite["^"+from] = to
	}

	mw := echomiddleware.ProxyWithConfig(echomiddleware.ProxyConfig{
		Balancer: echomiddleware.NewRoundRobinBalancer([]*echomiddleware.ProxyTarget{
			{Name: "auth-service", URL: target},
		}),
		Rewrite:   rewrite,
		Transport: otelhttp.NewTransport(base),
	})
	return &AuthProxy{mw: mw}, nil
}

// Handler returns an echo handler that forwards the request upstream.
func (p *AuthProxy) Handler() echo.HandlerFunc {
	return p.mw(func(c echo.Context) error {
		return echo.ErrNotFound
	})
}
