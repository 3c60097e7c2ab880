package config

import (
	"fmt"
	"testing"
)

func TestValidateTieredUnknownBackendIsFatal(t *testing.T) {
	cfg := Default()
	cfg.AnimStoreBackend = "dropbox"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("unknown animstore backend should be fatal")
	}
}

func TestValidateTieredS3BackendRequiresBucket(t *testing.T) {
	cfg := Default()
	cfg.AnimStoreBackend = "s3"
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("s3 backend without s3_bucket should be fatal")
	}

	cfg.S3Bucket = "animations"
	result = cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("s3 backend with bucket set should not be fatal: %v", result.Fatals)
	}
}

func TestValidateTieredFPSClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.DefaultFPS = 0
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped fps should be warning, not fatal: %v", result.Fatals)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for non-positive fps")
	}
	if cfg.DefaultFPS != 30 {
		t.Fatalf("DefaultFPS = %v, want 30 (clamped)", cfg.DefaultFPS)
	}
}

func TestValidateTieredHighFPSClampingIsWarning(t *testing.T) {
	cfg := Default()
	cfg.DefaultFPS = 10000
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped fps should be warning, not fatal: %v", result.Fatals)
	}
	if cfg.DefaultFPS != 240 {
		t.Fatalf("DefaultFPS = %v, want 240 (clamped)", cfg.DefaultFPS)
	}
}

func TestValidateTieredSlotCountClamping(t *testing.T) {
	cfg := Default()
	cfg.DefaultSlotCount = 1
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped slot count should be warning: %v", result.Fatals)
	}
	if cfg.DefaultSlotCount != 3 {
		t.Fatalf("DefaultSlotCount = %d, want 3 (clamped to minimum)", cfg.DefaultSlotCount)
	}
}

func TestValidateTieredUnknownLogLevelIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("unknown log level should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for unknown log level")
	}
}

func TestValidateTieredInvalidLogFormatIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("invalid log format should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for invalid log format")
	}
}

func TestHasFatals(t *testing.T) {
	r := ValidationResult{}
	if r.HasFatals() {
		t.Fatal("HasFatals() on empty result should be false")
	}
	r.Fatals = append(r.Fatals, fmt.Errorf("test error"))
	if !r.HasFatals() {
		t.Fatal("HasFatals() should be true with a fatal error")
	}
}

func TestAllErrorsReturnsBoth(t *testing.T) {
	cfg := Default()
	cfg.AnimStoreBackend = "dropbox" // fatal
	cfg.LogLevel = "verbose"         // warning
	result := cfg.ValidateTiered()

	all := result.AllErrors()
	if len(all) < 2 {
		t.Fatalf("AllErrors() returned %d errors, expected at least 2 (fatals + warnings)", len(all))
	}
}

func TestValidConfigHasNoErrors(t *testing.T) {
	cfg := Default()
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("default config has fatals: %v", result.Fatals)
	}
	if len(result.Warnings) > 0 {
		t.Fatalf("default config has warnings: %v", result.Warnings)
	}
}
