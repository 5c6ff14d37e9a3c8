package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "JWT_SECRET", "JWT_SESSION_TTL", "RESET_TOKEN_TTL", "UPLOAD_MAX_BYTES", "COOKIE_SECURE"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "development", cfg.Env)
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, int64(5*1024*1024), cfg.UploadMaxBytes)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ProductionSecureCookie(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("COOKIE_SECURE", "")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.CookieSecure)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SESSION_TTL", "soon")
	t.Setenv("REDIS_DB", "x")
	t.Setenv("COOKIE_SECURE", "maybe")

	cfg := Load()
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.CookieSecure)
}

func TestConfig_Lists(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " http://a.test, ,http://b.test ", ElasticsearchAddrs: "http://es:9200"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins())
	assert.Equal(t, []string{"http://es:9200"}, cfg.ESAddrs())
}

func TestConfig_PostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "pks", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/pks?sslmode=disable", cfg.PostgresDSN())
}

func TestConfig_TrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "")
	assert.Empty(t, Load().TrustedProxyList(), "no proxy is trusted by default")

	cfg := &Config{TrustedProxies: "10.0.0.0/8, 172.16.0.1"}
	assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.1"}, cfg.TrustedProxyList())
}
