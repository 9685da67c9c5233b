package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
		// debug | info | warn | error
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	// Login controla el comportamiento del flujo de login social.
	Login struct {
		// Método HTTP aceptado por la acción de login. Default: POST.
		Method string `yaml:"method"`
		// URL de la página de login (destino de los redirects de error).
		LoginURL string `yaml:"login_url"`
		// Destino post-login cuando no hay redirect pendiente válido.
		DefaultRedirect string `yaml:"default_redirect"`
		// Clave de sesión bajo la que se guarda el usuario autenticado.
		SessionKey string `yaml:"session_key"`
		// record | map: forma del usuario serializado en sesión.
		UserShape string `yaml:"user_shape"`
		// Nombre del campo tipo password que se elimina antes de serializar.
		PasswordField string `yaml:"password_field"`
		// Finder usado para resolver el usuario vinculado: all | active.
		Finder string `yaml:"finder"`
		// Si true, los errores del provider se loguean con contexto del request.
		LogProviderErrors bool `yaml:"log_provider_errors"`
	} `yaml:"login"`

	Session struct {
		CookieName string `yaml:"cookie_name"`
		TTL        string `yaml:"ttl"`
		Secure     bool   `yaml:"secure"`
	} `yaml:"session"`

	Storage struct {
		// postgres | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
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

	// State firma el parámetro OAuth `state` con HMAC.
	State struct {
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"`
	} `yaml:"state"`

	Providers struct {
		Google Provider `yaml:"google"`
		GitHub Provider `yaml:"github"`
	} `yaml:"providers"`

	SMTP struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"smtp"`
}

// Provider configura un identity provider externo.
type Provider struct {
	Enabled      bool     `yaml:"enabled"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

// Load lee el YAML, aplica defaults y pisa con variables de entorno.
// El caller recibe siempre una configuración completamente resuelta.
func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// Defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Login.Method == "" {
		c.Login.Method = http.MethodPost
	}
	c.Login.Method = strings.ToUpper(strings.TrimSpace(c.Login.Method))
	if c.Login.LoginURL == "" {
		c.Login.LoginURL = "/login"
	}
	if c.Login.DefaultRedirect == "" {
		c.Login.DefaultRedirect = "/"
	}
	if c.Login.SessionKey == "" {
		c.Login.SessionKey = "user"
	}
	if c.Login.UserShape == "" {
		c.Login.UserShape = "record"
	}
	if c.Login.PasswordField == "" {
		c.Login.PasswordField = "password_hash"
	}
	if c.Login.Finder == "" {
		c.Login.Finder = "all"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "authbridge_session"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "30m"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "30m"
	}
	if c.State.TTL == "" {
		c.State.TTL = "10m"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate revisa valores críticos (duraciones, shapes, método HTTP).
func (c *Config) Validate() error {
	for _, d := range []struct{ name, val string }{
		{"session.ttl", c.Session.TTL},
		{"cache.memory.default_ttl", c.Cache.Memory.DefaultTTL},
		{"state.ttl", c.State.TTL},
	} {
		if d.val != "" {
			if _, err := time.ParseDuration(d.val); err != nil {
				return fmt.Errorf("config: %s: %w", d.name, err)
			}
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return fmt.Errorf("config: storage.postgres.conn_max_lifetime: %w", err)
		}
	}
	switch c.Login.UserShape {
	case "record", "map":
	default:
		return fmt.Errorf("config: login.user_shape must be record or map, got %q", c.Login.UserShape)
	}
	switch c.Login.Finder {
	case "all", "active":
	default:
		return fmt.Errorf("config: login.finder must be all or active, got %q", c.Login.Finder)
	}
	return nil
}

// SessionTTL retorna la duración de sesión ya parseada.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}

// StateTTL retorna la duración del state token ya parseada.
func (c *Config) StateTTL() time.Duration {
	d, _ := time.ParseDuration(c.State.TTL)
	return d
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// LOGIN
	if v, ok := getEnvStr("LOGIN_METHOD"); ok {
		c.Login.Method = strings.ToUpper(strings.TrimSpace(v))
	}
	if v, ok := getEnvStr("LOGIN_URL"); ok {
		c.Login.LoginURL = v
	}
	if v, ok := getEnvStr("LOGIN_DEFAULT_REDIRECT"); ok {
		c.Login.DefaultRedirect = v
	}
	if v, ok := getEnvStr("LOGIN_SESSION_KEY"); ok {
		c.Login.SessionKey = v
	}
	if v, ok := getEnvStr("LOGIN_USER_SHAPE"); ok {
		c.Login.UserShape = v
	}
	if v, ok := getEnvStr("LOGIN_PASSWORD_FIELD"); ok {
		c.Login.PasswordField = v
	}
	if v, ok := getEnvStr("LOGIN_FINDER"); ok {
		c.Login.Finder = v
	}
	if v, ok := getEnvBool("LOGIN_LOG_PROVIDER_ERRORS"); ok {
		c.Login.LogProviderErrors = v
	}

	// SESSION
	if v, ok := getEnvStr("SESSION_COOKIE_NAME"); ok {
		c.Session.CookieName = v
	}
	if v, ok := getEnvStr("SESSION_TTL"); ok {
		c.Session.TTL = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
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

	// STATE
	if v, ok := getEnvStr("STATE_SECRET"); ok {
		c.State.Secret = v
	}
	if v, ok := getEnvStr("STATE_TTL"); ok {
		c.State.TTL = v
	}

	// GOOGLE
	if v, ok := getEnvBool("GOOGLE_ENABLED"); ok {
		c.Providers.Google.Enabled = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_ID"); ok {
		c.Providers.Google.ClientID = v
	}
	if v, ok := getEnvStr("GOOGLE_CLIENT_SECRET"); ok {
		c.Providers.Google.ClientSecret = v
	}
	if v, ok := getEnvStr("GOOGLE_REDIRECT_URL"); ok {
		c.Providers.Google.RedirectURL = v
	}
	if v, ok := getEnvCSV("GOOGLE_SCOPES"); ok && len(v) > 0 {
		c.Providers.Google.Scopes = v
	}

	// GITHUB
	if v, ok := getEnvBool("GITHUB_ENABLED"); ok {
		c.Providers.GitHub.Enabled = v
	}
	if v, ok := getEnvStr("GITHUB_CLIENT_ID"); ok {
		c.Providers.GitHub.ClientID = v
	}
	if v, ok := getEnvStr("GITHUB_CLIENT_SECRET"); ok {
		c.Providers.GitHub.ClientSecret = v
	}
	if v, ok := getEnvStr("GITHUB_REDIRECT_URL"); ok {
		c.Providers.GitHub.RedirectURL = v
	}
	if v, ok := getEnvCSV("GITHUB_SCOPES"); ok && len(v) > 0 {
		c.Providers.GitHub.Scopes = v
	}

	// SMTP
	if v, ok := getEnvBool("SMTP_ENABLED"); ok {
		c.SMTP.Enabled = v
	}
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
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}
