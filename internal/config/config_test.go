package config

import (
	"testing"
)

// setRequiredEnv seeds the secrets Load refuses to default.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "test-access")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "test-secret")
	t.Setenv("AUTH_PUBLIC_KEY_PEM", "-----BEGIN PUBLIC KEY-----\ntest\n-----END PUBLIC KEY-----")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.API.Port != 8080 {
		t.Fatalf("api port default: %d", cfg.API.Port)
	}
	if cfg.Database.DSN() != "host=localhost port=5432 user=jobtrail password=jobtrail dbname=jobtrail sslmode=disable" {
		t.Fatalf("unexpected dsn: %q", cfg.Database.DSN())
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Fatalf("unexpected redis addr: %q", cfg.Redis.Addr())
	}
	if cfg.Enrich.GitHubBaseURL != "https://api.github.com" {
		t.Fatalf("unexpected github base url: %q", cfg.Enrich.GitHubBaseURL)
	}
	if cfg.Enrich.RateLimitPerDay != 20 {
		t.Fatalf("unexpected enrich rate limit: %d", cfg.Enrich.RateLimitPerDay)
	}
	if cfg.Upload.MaxBytes != 10*1024*1024 {
		t.Fatalf("unexpected upload limit: %d", cfg.Upload.MaxBytes)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("POSTGRES_DB", "jobtrail_test")
	t.Setenv("REDIS_HOST", "redis.internal")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Fatalf("api port override ignored: %d", cfg.API.Port)
	}
	if cfg.Database.Name != "jobtrail_test" {
		t.Fatalf("database name override ignored: %q", cfg.Database.Name)
	}
	if cfg.Redis.Addr() != "redis.internal:6379" {
		t.Fatalf("redis host override ignored: %q", cfg.Redis.Addr())
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("negative api port accepted")
	}
}
