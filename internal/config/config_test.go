package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := "JWT_SECRET=file-secret\nSTORE_DRIVER=memory\nPORT=9090\nCORS_ORIGINS=http://a.test, http://b.test\n"
	if err := os.WriteFile(filepath.Join(dir, "config.env"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.JWTSecret != "file-secret" {
		t.Errorf("expected secret from file, got %q", cfg.JWTSecret)
	}
	if cfg.Addr() != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.Addr())
	}
	if got := cfg.AllowedOrigins(); len(got) != 2 || got[1] != "http://b.test" {
		t.Errorf("unexpected origins %v", got)
	}
	if cfg.RedemptionTTL() != 30*24*time.Hour {
		t.Errorf("expected default 30 day redemption ttl, got %s", cfg.RedemptionTTL())
	}
}

func TestLoadEnvOverridesWithoutFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDEMPTION_TTL_DAYS", "7")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.JWTSecret != "env-secret" {
		t.Errorf("expected env secret, got %q", cfg.JWTSecret)
	}
	if cfg.RedemptionTTLDays != 7 {
		t.Errorf("expected 7, got %d", cfg.RedemptionTTLDays)
	}
	if cfg.JWTTTL() != 7*24*time.Hour {
		t.Errorf("expected default jwt ttl, got %s", cfg.JWTTTL())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing secret", Config{StoreDriver: DriverMemory, RedemptionTTLDays: 30}, true},
		{"postgres without dsn", Config{JWTSecret: "s", StoreDriver: DriverPostgres, RedemptionTTLDays: 30}, true},
		{"unknown driver", Config{JWTSecret: "s", StoreDriver: "mongo", RedemptionTTLDays: 30}, true},
		{"memory ok", Config{JWTSecret: "s", StoreDriver: DriverMemory, RedemptionTTLDays: 30}, false},
		{"postgres ok", Config{JWTSecret: "s", StoreDriver: DriverPostgres, DSN: "postgres://x", RedemptionTTLDays: 30}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStaffEmailList(t *testing.T) {
	cfg := Config{StaffEmails: " Nurse@Bank.test ,,admin@bank.test"}
	got := cfg.StaffEmailList()
	if len(got) != 2 || got[0] != "nurse@bank.test" || got[1] != "admin@bank.test" {
		t.Errorf("unexpected staff list %v", got)
	}
}
