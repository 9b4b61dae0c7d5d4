package safewalk

import (
	"errors"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig("/scan/root")

	if cfg.Root != "/scan/root" {
		t.Errorf("Root = %q, want /scan/root", cfg.Root)
	}
	if cfg.MaxRateMBPerSec != 10.0 {
		t.Errorf("MaxRateMBPerSec = %v, want 10.0", cfg.MaxRateMBPerSec)
	}
	if cfg.FollowSymlinks {
		t.Error("FollowSymlinks should default to false")
	}
	if cfg.Timeout != time.Hour {
		t.Errorf("Timeout = %v, want 1h", cfg.Timeout)
	}
	if cfg.MaxDepth != NoDepthLimit {
		t.Errorf("MaxDepth = %d, want NoDepthLimit", cfg.MaxDepth)
	}
	if cfg.MaxUniqueFiles != 1_000_000 {
		t.Errorf("MaxUniqueFiles = %d, want 1000000", cfg.MaxUniqueFiles)
	}
	if !cfg.Deterministic {
		t.Error("Deterministic should default to true")
	}
	if cfg.OnSkip != nil {
		t.Error("OnSkip should default to nil")
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		wantErr bool
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "relative root",
			mutate:  func(c *Config) { c.Root = "relative/path" },
			field:   "Root",
			wantErr: true,
		},
		{
			name:    "zero rate",
			mutate:  func(c *Config) { c.MaxRateMBPerSec = 0 },
			field:   "MaxRateMBPerSec",
			wantErr: true,
		},
		{
			name:    "negative rate",
			mutate:  func(c *Config) { c.MaxRateMBPerSec = -1.5 },
			field:   "MaxRateMBPerSec",
			wantErr: true,
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			field:   "Timeout",
			wantErr: true,
		},
		{
			name:    "zero cache capacity",
			mutate:  func(c *Config) { c.MaxUniqueFiles = 0 },
			field:   "MaxUniqueFiles",
			wantErr: true,
		},
		{
			name:    "depth below sentinel",
			mutate:  func(c *Config) { c.MaxDepth = -2 },
			field:   "MaxDepth",
			wantErr: true,
		},
		{
			name:   "zero depth is valid",
			mutate: func(c *Config) { c.MaxDepth = 0 },
		},
		{
			name:   "fractional rate is valid",
			mutate: func(c *Config) { c.MaxRateMBPerSec = 0.5 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(t.TempDir())
			tt.mutate(&cfg)
			err := cfg.validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("validate() = %v, want nil", err)
				}
				return
			}
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("validate() = %v, want *ConfigError", err)
			}
			if cerr.Field != tt.field {
				t.Errorf("ConfigError.Field = %q, want %q", cerr.Field, tt.field)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := NewConfig("not/absolute")
	if _, err := New(cfg); err == nil {
		t.Fatal("New should fail for a non-absolute root")
	}
}

func TestNewRejectsUnresolvableRoot(t *testing.T) {
	cfg := NewConfig("/definitely/does/not/exist/safewalk-test")
	if _, err := New(cfg); err == nil {
		t.Fatal("New should fail when the root cannot be resolved")
	}
}
