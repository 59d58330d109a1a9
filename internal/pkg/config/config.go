package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// AuthConfig configures the auth service process.
type AuthConfig struct {
	Port string `env:"PORT,      default=8081"`
	Env  string `env:"ENV,       default=development"`

	Token TokenConfig
	Log   LogConfig
	Mongo MongoConfig
	Redis RedisConfig
	Rate  RateLimitConfig
	OTel  OTelConfig

	BcryptCost       int  `env:"BCRYPT_COST,        default=12"`
	AllowAdminSignup bool `env:"ALLOW_ADMIN_SIGNUP, default=true"`

	// TrustedProxies lists the IPs or CIDRs (normally the notes API) whose
	// X-Forwarded-For header is used for per-client rate limiting.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// TrustedProxyNets parses TrustedProxies. A bare IP becomes a single-host
// network.
func (c *AuthConfig) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("config: TRUSTED_PROXIES: invalid address %q", raw)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// NotesConfig configures the public notes API process.
type NotesConfig struct {
	Port           string        `env:"PORT,             default=8000"`
	Env            string        `env:"ENV,              default=development"`
	AuthServiceURL string        `env:"AUTH_SERVICE_URL, default=http://localhost:8081"`
	ProxyTimeout   time.Duration `env:"PROXY_TIMEOUT,    default=10s"`

	Token TokenConfig
	Log   LogConfig
	Mongo MongoConfig
	Redis RedisConfig
	Rate  RateLimitConfig
	OTel  OTelConfig
}

type TokenConfig struct {
	Secret string        `env:"JWT_SECRET"`
	TTL    time.Duration `env:"TOKEN_TTL,    default=24h"`
	Issuer string        `env:"TOKEN_ISSUER, default=notes-auth"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL,  default=info"`
	Pretty bool   `env:"LOG_PRETTY, default=false"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=notes"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type RateLimitConfig struct {
	Requests int           `env:"RATE_LIMIT_REQUESTS, default=20"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW,   default=1m"`
}

type OTelConfig struct {
	Enabled  bool   `env:"OTEL_ENABLED,  default=false"`
	Endpoint string `env:"OTEL_ENDPOINT, default=localhost:4317"`
}

var ErrMissingSecret = errors.New("JWT_SECRET is required")

// LoadAuth reads the auth service configuration from the environment.
func LoadAuth(ctx context.Context) (*AuthConfig, error) {
	return LoadAuthFrom(ctx, envconfig.OsLookuper())
}

// LoadAuthFrom is LoadAuth over an arbitrary lookuper.
func LoadAuthFrom(ctx context.Context, l envconfig.Lookuper) (*AuthConfig, error) {
	var cfg AuthConfig
	if err := process(ctx, &cfg, l); err != nil {
		return nil, err
	}
	if err := cfg.Token.validate(); err != nil {
		return nil, err
	}
	if cfg.BcryptCost < 10 {
		return nil, fmt.Errorf("config: BCRYPT_COST must be at least 10, got %d", cfg.BcryptCost)
	}
	if err := cfg.Rate.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.TrustedProxyNets(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadNotes reads the notes API configuration from the environment.
func LoadNotes(ctx context.Context) (*NotesConfig, error) {
	return LoadNotesFrom(ctx, envconfig.OsLookuper())
}

// LoadNotesFrom is LoadNotes over an arbitrary lookuper.
func LoadNotesFrom(ctx context.Context, l envconfig.Lookuper) (*NotesConfig, error) {
	var cfg NotesConfig
	if err := process(ctx, &cfg, l); err != nil {
		return nil, err
	}
	if err := cfg.Token.validate(); err != nil {
		return nil, err
	}
	if cfg.AuthServiceURL == "" {
		return nil, errors.New("config: AUTH_SERVICE_URL must not be empty")
	}
	if err := cfg.Rate.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func process(ctx context.Context, target any, l envconfig.Lookuper) error {
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: target, Lookuper: l}); err != nil {
		return fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return nil
}

func (t TokenConfig) validate() error {
	if t.Secret == "" {
		return fmt.Errorf("config: %w", ErrMissingSecret)
	}
	if t.TTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive, got %s", t.TTL)
	}
	return nil
}

func (r RateLimitConfig) validate() error {
	if r.Requests <= 0 || r.Window <= 0 {
		return fmt.Errorf("config: rate limit needs positive RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW")
	}
	return nil
}
