package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"household/internal/config"
	"household/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	_, err := FromAppConfig(&config.Config{DataBackend: "sheets"})
	if err == nil || !strings.Contains(err.Error(), "valid: [sqlite postgres bolt memory]") {
		t.Fatalf("unknown backend error = %v", err)
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: config.BackendBolt, BoltDBPath: "x.bolt", AMQPQueue: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != BoltBackend || cfg.BoltDBPath != "x.bolt" || cfg.AMQPQueue != "q" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path"},
		{"postgres without url", Config{Type: PostgresBackend}, "database URL"},
		{"bolt without path", Config{Type: BoltBackend}, "bolt database path"},
		{"unknown", Config{Type: "sheets"}, "invalid backend type: sheets (valid: [sqlite postgres bolt memory])"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypesAreValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s listed but not valid", bt)
		}
	}
	if BackendType("sheets").IsValid() {
		t.Error("sheets must not be a valid backend")
	}
}

func TestCreateBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"memory", Config{Type: MemoryBackend}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "household.db")}},
		{"bolt", Config{Type: BoltBackend, BoltDBPath: filepath.Join(dir, "household.bolt")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			res, err := NewFactory(nil).CreateBackend(ctx, tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			if res.Publisher != nil {
				t.Fatal("publisher must be nil without AMQP_URL")
			}
			if err := res.Store.Ping(ctx); err != nil {
				t.Fatalf("ping: %v", err)
			}
			u := core.User{ID: "u1", Name: "Ana", Email: "ana@example.com"}
			if err := res.Store.CreateUser(ctx, u); err != nil {
				t.Fatalf("create user: %v", err)
			}
			if err := res.Cleanup(); err != nil {
				t.Fatalf("cleanup: %v", err)
			}
		})
	}
}
