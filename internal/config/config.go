package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		PublicBaseURL      string   `yaml:"public_base_url"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		Postgres struct {
			DSN             string `yaml:"dsn"`
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Session struct {
		// Secret firma la cookie de sesión y el state de OAuth (HS256).
		Secret     string `yaml:"secret"`
		CookieName string `yaml:"cookie_name"`
		Domain     string `yaml:"domain"`
		SameSite   string `yaml:"samesite"`
		Secure     bool   `yaml:"secure"`
		TTL        string `yaml:"ttl"`
	} `yaml:"session"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Register struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"register"`
		Confirm struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"confirm"`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
	} `yaml:"smtp"`

	Email struct {
		ConfirmBaseURL string `yaml:"confirm_base_url"`
		ConfirmTTL     string `yaml:"confirm_ttl"`
	} `yaml:"email"`

	Providers struct {
		Facebook ProviderConfig `yaml:"facebook"`
		Twitter  ProviderConfig `yaml:"twitter"`
		Google   ProviderConfig `yaml:"google"`
	} `yaml:"providers"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

// ProviderConfig son las credenciales de un proveedor federado. Para
// twitter ClientID/ClientSecret son consumer key/secret de OAuth 1.0a.
type ProviderConfig struct {
	Enabled      bool     `yaml:"enabled"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "sid"
	}
	if c.Session.SameSite == "" {
		c.Session.SameSite = "Lax"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "720h" // 30d
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}
	if c.Rate.Register.Limit == 0 {
		c.Rate.Register.Limit = 5
	}
	if c.Rate.Register.Window == "" {
		c.Rate.Register.Window = "10m"
	}
	if c.Rate.Confirm.Limit == 0 {
		c.Rate.Confirm.Limit = 3
	}
	if c.Rate.Confirm.Window == "" {
		c.Rate.Confirm.Window = "10m"
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Email.ConfirmTTL == "" {
		c.Email.ConfirmTTL = "24h"
	}
	if len(c.Providers.Facebook.Scopes) == 0 {
		c.Providers.Facebook.Scopes = []string{"email"}
	}
	if len(c.Providers.Google.Scopes) == 0 {
		c.Providers.Google.Scopes = []string{"openid", "email", "profile"}
	}

	// Overrides por env + salvaguarda prod
	c.applyEnvOverrides()

	if err := c.validate(); err != nil {
		return nil, err
	}

	// RedirectURL vacío con base pública ⇒ autogenerar
	base := strings.TrimRight(c.Server.PublicBaseURL, "/")
	if base != "" {
		for name, p := range map[string]*ProviderConfig{
			"facebook": &c.Providers.Facebook,
			"twitter":  &c.Providers.Twitter,
			"google":   &c.Providers.Google,
		} {
			if p.Enabled && strings.TrimSpace(p.RedirectURL) == "" {
				p.RedirectURL = base + "/auth/" + name + "/callback"
			}
		}
	}
	return &c, nil
}

// SessionTTL devuelve el TTL de sesión ya parseado; validate garantiza
// que el string es válido.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}

func (c *Config) ConfirmTTL() time.Duration {
	d, _ := time.ParseDuration(c.Email.ConfirmTTL)
	return d
}

func (c *Config) validate() error {
	for name, s := range map[string]string{
		"session.ttl":               c.Session.TTL,
		"email.confirm_ttl":         c.Email.ConfirmTTL,
		"cache.memory.default_ttl":  c.Cache.Memory.DefaultTTL,
		"rate.login.window":         c.Rate.Login.Window,
		"rate.register.window":      c.Rate.Register.Window,
		"rate.confirm.window":       c.Rate.Confirm.Window,
	} {
		if s == "" {
			continue
		}
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if s := c.Storage.Postgres.ConnMaxLifetime; s != "" {
		if _, err := time.ParseDuration(s); err != nil {
			return fmt.Errorf("config: storage.postgres.conn_max_lifetime: %w", err)
		}
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.Postgres.DSN) == "" {
		return fmt.Errorf("config: storage.driver=postgres requires storage.postgres.dsn")
	}
	if strings.EqualFold(c.App.Env, "prod") && strings.TrimSpace(c.Session.Secret) == "" {
		return fmt.Errorf("config: session.secret is required in prod")
	}
	return nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_PUBLIC_BASE_URL"); ok {
		c.Server.PublicBaseURL = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("POSTGRES_DSN"); ok {
		c.Storage.Postgres.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MIN_CONNS"); ok {
		c.Storage.Postgres.MinConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvStr("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// SESSION
	if v, ok := getEnvStr("SESSION_SECRET"); ok {
		c.Session.Secret = v
	}
	if v, ok := getEnvStr("SESSION_COOKIE_NAME"); ok {
		c.Session.CookieName = v
	}
	if v, ok := getEnvStr("SESSION_DOMAIN"); ok {
		c.Session.Domain = v
	}
	if v, ok := getEnvStr("SESSION_SAMESITE"); ok {
		c.Session.SameSite = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}
	if v, ok := getEnvStr("SESSION_TTL"); ok {
		c.Session.TTL = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LOGIN_LIMIT"); ok {
		c.Rate.Login.Limit = v
	}
	if v, ok := getEnvStr("RATE_LOGIN_WINDOW"); ok {
		c.Rate.Login.Window = v
	}
	if v, ok := getEnvInt("RATE_REGISTER_LIMIT"); ok {
		c.Rate.Register.Limit = v
	}
	if v, ok := getEnvStr("RATE_REGISTER_WINDOW"); ok {
		c.Rate.Register.Window = v
	}
	if v, ok := getEnvInt("RATE_CONFIRM_LIMIT"); ok {
		c.Rate.Confirm.Limit = v
	}
	if v, ok := getEnvStr("RATE_CONFIRM_WINDOW"); ok {
		c.Rate.Confirm.Window = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}

	// EMAIL
	if v, ok := getEnvStr("EMAIL_CONFIRM_BASE_URL"); ok {
		c.Email.ConfirmBaseURL = v
	}
	if v, ok := getEnvStr("EMAIL_CONFIRM_TTL"); ok {
		c.Email.ConfirmTTL = v
	}

	// PROVIDERS
	c.Providers.Facebook.applyEnv("FACEBOOK")
	c.Providers.Twitter.applyEnv("TWITTER")
	c.Providers.Google.applyEnv("GOOGLE")

	// FLAGS
	if v, ok := getEnvBool("FLAGS_MIGRATE"); ok {
		c.Flags.Migrate = v
	}
}

func (p *ProviderConfig) applyEnv(prefix string) {
	if v, ok := getEnvBool(prefix + "_ENABLED"); ok {
		p.Enabled = v
	}
	if v, ok := getEnvStr(prefix + "_CLIENT_ID"); ok {
		p.ClientID = v
	}
	if v, ok := getEnvStr(prefix + "_CLIENT_SECRET"); ok {
		p.ClientSecret = v
	}
	if v, ok := getEnvStr(prefix + "_REDIRECT_URL"); ok {
		p.RedirectURL = v
	}
	if v, ok := getEnvCSV(prefix + "_SCOPES"); ok && len(v) > 0 {
		p.Scopes = v
	}
}
