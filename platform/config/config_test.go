package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want error for missing DATABASE_URL")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/crm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ORACLE_TIMEOUT", "20s")
	t.Setenv("ORACLE_MODEL", "gpt-4o-mini")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GetOracleTimeout() != 20*time.Second {
		t.Errorf("GetOracleTimeout() = %v, want 20s", cfg.GetOracleTimeout())
	}
	if cfg.GetOracleModel() != "gpt-4o-mini" {
		t.Errorf("GetOracleModel() = %q, want gpt-4o-mini", cfg.GetOracleModel())
	}
	if cfg.IsOracleEnabled() {
		t.Error("IsOracleEnabled() = true without an API key")
	}
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/crm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want error for wildcard CORS with credentials")
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" a, ,b ,c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitCSV() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitCSV()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
