package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Store.Driver != "sqlite3" || cfg.App.MetricsPath != "/metrics" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestStoreConfig_RejectsUnknownDriver(t *testing.T) {
	cfg := StoreConfig{Driver: "mysql", DSN: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail validation")
	}
	cfg = StoreConfig{Driver: "pgx", DSN: ""}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty dsn should fail validation")
	}
}

func TestStoreConfig_NegativeTimeout(t *testing.T) {
	cfg := StoreConfig{Driver: "sqlite3", DSN: "x", OpTimeout: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative op_timeout should fail validation")
	}
}

func TestCatalogConfig_WatchNeedsPath(t *testing.T) {
	cfg := CatalogConfig{Watch: true}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "path is empty") {
		t.Fatalf("err = %v, want path is empty", err)
	}
	cfg = CatalogConfig{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled catalog should pass: %v", err)
	}
}

func TestApplicationConfig_MetricsPath(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.MetricsPath = "metrics"
	if err := cfg.Validate(); err == nil {
		t.Fatal("relative metrics path should fail")
	}
}
