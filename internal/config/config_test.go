package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.App.Env)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "memory", cfg.Cache.Driver)
	require.Equal(t, "rotation:lock", cfg.Rotation.LockKey)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL())
	require.Equal(t, 5*time.Minute, cfg.RotationInterval())
	require.Equal(t, 24*time.Hour, cfg.RotationGrace())
	require.Equal(t, 30*time.Second, cfg.LockTTL())
	require.Equal(t, 15*time.Second, cfg.JWKSCacheTTL())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: ":9090"
jwt:
  issuer: "https://keys.example.com"
keys:
  active: k1
  ring:
    - kid: k1
      alg: HS256
      material: sekrit
rotation:
  interval: 1m
  grace: 48h
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "https://keys.example.com", cfg.JWT.Issuer)
	require.Equal(t, "k1", cfg.Keys.Active)
	require.Len(t, cfg.Keys.Ring, 1)
	require.Equal(t, time.Minute, cfg.RotationInterval())
	require.Equal(t, 48*time.Hour, cfg.RotationGrace())
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600))

	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("ROTATION_GRACE", "2h")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Server.Addr)
	require.Equal(t, 2*time.Hour, cfg.RotationGrace())
}

func TestMaterialOf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(path, []byte("file-material"), 0o600))

	// material_file gana sobre inline.
	m, err := MaterialOf(KeyEntry{KID: "k", Material: "inline", MaterialFile: path})
	require.NoError(t, err)
	require.Equal(t, "file-material", m)

	m, err = MaterialOf(KeyEntry{KID: "k", Material: "inline"})
	require.NoError(t, err)
	require.Equal(t, "inline", m)

	_, err = MaterialOf(KeyEntry{KID: "k", MaterialFile: filepath.Join(dir, "missing.pem")})
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}
