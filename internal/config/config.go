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
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr        string `yaml:"addr"`
		AdminAPIKey string `yaml:"admin_api_key"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Cache struct {
		Driver   string `yaml:"driver"` // "memory" | "redis"
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"cache"`

	Storage struct {
		Driver string `yaml:"driver"` // "none" | "postgres"
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	JWT struct {
		Issuer     string `yaml:"issuer"`
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	// Keys es el mapa inicial de claves y el kid activo. Lo provee y es dueño
	// un colaborador externo; el core solo lo lee para poblar el registro.
	Keys struct {
		Active string     `yaml:"active"`
		Ring   []KeyEntry `yaml:"ring"`
	} `yaml:"keys"`

	Rotation struct {
		Interval     string `yaml:"interval"`       // ej: 5m
		Grace        string `yaml:"grace"`          // ej: 24h
		LockKey      string `yaml:"lock_key"`       // ej: rotation:lock
		LockTTL      string `yaml:"lock_ttl"`       // ej: 30s
		JWKSCacheTTL string `yaml:"jwks_cache_ttl"` // ej: 15s
	} `yaml:"rotation"`
}

// KeyEntry es una clave del ring inicial. Material inline o vía archivo
// (material_file gana si ambos están).
type KeyEntry struct {
	KID          string `yaml:"kid"`
	Alg          string `yaml:"alg"`
	Material     string `yaml:"material"`
	MaterialFile string `yaml:"material_file"`
}

// Load lee el YAML, aplica overrides de env y defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setStr(&c.App.Env, "APP_ENV")
	setStr(&c.Server.Addr, "SERVER_ADDR")
	setStr(&c.Server.AdminAPIKey, "ADMIN_API_KEY")
	setStr(&c.Log.Level, "LOG_LEVEL")
	setStr(&c.Cache.Driver, "CACHE_DRIVER")
	setStr(&c.Cache.Addr, "CACHE_ADDR")
	setStr(&c.Cache.Password, "CACHE_PASSWORD")
	setInt(&c.Cache.DB, "CACHE_DB")
	setStr(&c.Cache.Prefix, "CACHE_PREFIX")
	setStr(&c.Storage.Driver, "STORAGE_DRIVER")
	setStr(&c.Storage.DSN, "STORAGE_DSN")
	setStr(&c.JWT.Issuer, "JWT_ISSUER")
	setStr(&c.JWT.AccessTTL, "JWT_ACCESS_TTL")
	setStr(&c.JWT.RefreshTTL, "JWT_REFRESH_TTL")
	setStr(&c.Rotation.Interval, "ROTATION_INTERVAL")
	setStr(&c.Rotation.Grace, "ROTATION_GRACE")
	setStr(&c.Rotation.LockKey, "ROTATION_LOCK_KEY")
	setStr(&c.Rotation.LockTTL, "ROTATION_LOCK_TTL")
	setStr(&c.Rotation.JWKSCacheTTL, "ROTATION_JWKS_CACHE_TTL")
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "http://localhost:8080"
	}
	if c.Rotation.LockKey == "" {
		c.Rotation.LockKey = "rotation:lock"
	}
}

// ─── Duraciones parseadas (con default) ───

func (c *Config) AccessTTL() time.Duration  { return durOr(c.JWT.AccessTTL, 15*time.Minute) }
func (c *Config) RefreshTTL() time.Duration { return durOr(c.JWT.RefreshTTL, 30*24*time.Hour) }
func (c *Config) RotationInterval() time.Duration {
	return durOr(c.Rotation.Interval, 5*time.Minute)
}
func (c *Config) RotationGrace() time.Duration { return durOr(c.Rotation.Grace, 24*time.Hour) }
func (c *Config) LockTTL() time.Duration       { return durOr(c.Rotation.LockTTL, 30*time.Second) }
func (c *Config) JWKSCacheTTL() time.Duration {
	return durOr(c.Rotation.JWKSCacheTTL, 15*time.Second)
}

// MaterialOf resuelve el material de una entrada (archivo gana sobre inline).
func MaterialOf(e KeyEntry) (string, error) {
	if e.MaterialFile != "" {
		b, err := os.ReadFile(e.MaterialFile)
		if err != nil {
			return "", fmt.Errorf("config: key %s material_file: %w", e.KID, err)
		}
		return string(b), nil
	}
	return e.Material, nil
}

func durOr(s string, def time.Duration) time.Duration {
	if strings.TrimSpace(s) == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func setStr(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
