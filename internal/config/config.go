// Package config is the trainkit process configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	baseconfig "github.com/dmitrymomot/trainkit/pkg/config"
	"github.com/dmitrymomot/trainkit/pkg/httpserver"
	"github.com/dmitrymomot/trainkit/pkg/logger"
	"github.com/dmitrymomot/trainkit/pkg/pg"
	"github.com/dmitrymomot/trainkit/pkg/redis"
)

// Cache backends for TENANT_CACHE_BACKEND.
const (
	CacheMemory    = "memory"
	CacheRistretto = "ristretto"
	CacheNone      = "none"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	App      App
	Log      logger.Config
	HTTP     httpserver.Config
	Postgres pg.Config
	Redis    redis.Config
}

// App holds the settings of the tenant edge itself.
type App struct {
	MainDomain string        `env:"MAIN_DOMAIN,required"`
	JWTSecret  string        `env:"JWT_SECRET,required"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"12h"`

	TenantCacheTTL         time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
	TenantNegativeCacheTTL time.Duration `env:"TENANT_NEGATIVE_CACHE_TTL" envDefault:"30s"`
	TenantCacheSize        int           `env:"TENANT_CACHE_SIZE" envDefault:"1000"`
	TenantCacheBackend     string        `env:"TENANT_CACHE_BACKEND" envDefault:"memory"`
	TenantClearChannel     string        `env:"TENANT_CLEAR_CHANNEL" envDefault:"trainkit:tenant-cache:clear"`

	LoginRateLimit int `env:"LOGIN_RATE_LIMIT" envDefault:"10"` // attempts per minute per client
	LoginRateBurst int `env:"LOGIN_RATE_BURST" envDefault:"5"`

	LastLoginInterval time.Duration `env:"LAST_LOGIN_INTERVAL" envDefault:"1m"`
	TrustProxy        bool          `env:"TRUST_PROXY" envDefault:"false"` // honor X-Forwarded-For only behind a trusted proxy

	BootstrapAdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// Load reads the environment (and .env) into a validated Config.
func Load() (Config, error) {
	var cfg Config
	if err := baseconfig.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFrom is Load over an explicit variable set.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := baseconfig.LoadFrom(&cfg, vars); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the constraints env tags cannot express.
func (c *Config) Validate() error {
	c.App.MainDomain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(c.App.MainDomain)), ".")

	var errs []error
	if c.App.MainDomain == "" || strings.ContainsAny(c.App.MainDomain, "/:@ ") {
		errs = append(errs, fmt.Errorf("MAIN_DOMAIN %q is not a bare host name", c.App.MainDomain))
	}
	if len(c.App.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	switch c.App.TenantCacheBackend {
	case CacheMemory, CacheRistretto, CacheNone:
	default:
		errs = append(errs, fmt.Errorf("TENANT_CACHE_BACKEND %q: want memory, ristretto or none", c.App.TenantCacheBackend))
	}
	if c.App.TenantCacheSize <= 0 {
		errs = append(errs, errors.New("TENANT_CACHE_SIZE must be positive"))
	}
	if c.App.LoginRateLimit <= 0 || c.App.LoginRateBurst <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_BURST must be positive"))
	}
	if (c.App.BootstrapAdminEmail == "") != (c.App.BootstrapAdminPassword == "") {
		errs = append(errs, errors.New("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD go together"))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalid}, errs...)...)
	}
	return nil
}
