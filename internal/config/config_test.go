package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET_KEY", "access-secret")
	t.Setenv("MAIL_TOKEN_SECRET_KEY", "mail-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	env, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if env.Port != 8081 {
		t.Fatalf("default port = %d, want 8081", env.Port)
	}
	if env.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("default access ttl = %v, want 30m", env.AccessTokenTTL)
	}
	if env.MailTokenTTL != 10*time.Minute {
		t.Fatalf("default mail ttl = %v, want 10m", env.MailTokenTTL)
	}
	if env.Addr() != "0.0.0.0:8081" {
		t.Fatalf("unexpected addr: %s", env.Addr())
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_EXPIRE_DELTA_IN_SECONDS", "900")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "authdb")
	t.Setenv("DB_USER", "svc")
	t.Setenv("DB_PASS", "pw")
	t.Setenv("DB_PORT", "5433")

	env, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if env.Port != 9090 {
		t.Fatalf("port = %d, want 9090", env.Port)
	}
	if env.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("access ttl = %v, want 15m", env.AccessTokenTTL)
	}
	if got := env.DSN(); got != "postgres://svc:pw@db.internal:5433/authdb" {
		t.Fatalf("unexpected dsn: %s", got)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET_KEY", "")
	t.Setenv("MAIL_TOKEN_SECRET_KEY", "mail-secret")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without access secret")
	}

	t.Setenv("ACCESS_TOKEN_SECRET_KEY", "access-secret")
	t.Setenv("MAIL_TOKEN_SECRET_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without mail secret")
	}
}

func TestLoadRejectsEqualSecrets(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET_KEY", "same")
	t.Setenv("MAIL_TOKEN_SECRET_KEY", "same")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for identical secrets")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "not-a-number")
	t.Setenv("ACCESS_TOKEN_EXPIRE_DELTA_IN_SECONDS", "-5")

	env, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if env.Port != 8081 {
		t.Fatalf("malformed port must fall back, got %d", env.Port)
	}
	if env.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("non-positive ttl must fall back, got %v", env.AccessTokenTTL)
	}
}
