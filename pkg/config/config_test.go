package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port required")
	}
	return nil
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("TD_PORT", "9090")
	p := writeConfig(t, "port: ${TD_PORT}\n")
	cfg := sample{Name: "default"}
	if err := Load(p, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 9090 || cfg.Name != "default" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	p := writeConfig(t, "port: 1\nprot: 2\n")
	var cfg sample
	if err := Load(p, &cfg); err == nil {
		t.Fatal("unknown key should fail")
	}
}

func TestLoad_RunsValidator(t *testing.T) {
	p := writeConfig(t, "name: x\n")
	var cfg sample
	err := Load(p, &cfg)
	if err == nil || !strings.Contains(err.Error(), "port required") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want ErrNotExist", err)
	}
}

func TestExpandEnv_Default(t *testing.T) {
	t.Setenv("TD_SET", "on")
	t.Setenv("TD_EMPTY", "")
	got := ExpandEnv("${TD_SET:-off} ${TD_EMPTY:-fallback} ${TD_UNSET}")
	if got != "on fallback " {
		t.Errorf("got %q", got)
	}
}
