package config

import (
	"fmt"
	"net/url"
	"strings"
)

var knownBackends = map[string]bool{
	"local":     true,
	"s3":        true,
	"azureblob": true,
	"gcs":       true,
	"b2":        true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidationResult separates errors that must block startup (Fatals) from
// ones that are auto-corrected or merely informative (Warnings).
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

// HasFatals reports whether startup should be aborted.
func (r ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

// AllErrors returns fatals followed by warnings, for callers that just want
// to log or print everything found.
func (r ValidationResult) AllErrors() []error {
	all := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	all = append(all, r.Fatals...)
	all = append(all, r.Warnings...)
	return all
}

// ValidateTiered checks cfg for invalid values. Dangerous zero/out-of-range
// values that would otherwise panic downstream (a zero tick interval, an
// empty listen address) are clamped to safe defaults and reported as
// warnings; values that indicate a genuinely broken configuration (an
// unparseable listen address, an unsupported store backend) are fatal.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	if c.ListenAddr == "" {
		r.Warnings = append(r.Warnings, fmt.Errorf("listen_addr empty, defaulting to :8087"))
		c.ListenAddr = ":8087"
	}

	if c.DefaultFPS <= 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("default_fps %v is not positive, clamping to 30", c.DefaultFPS))
		c.DefaultFPS = 30
	} else if c.DefaultFPS > 240 {
		r.Warnings = append(r.Warnings, fmt.Errorf("default_fps %v exceeds maximum 240, clamping", c.DefaultFPS))
		c.DefaultFPS = 240
	}

	if c.DefaultSlotCount < 3 {
		r.Warnings = append(r.Warnings, fmt.Errorf("default_slot_count %d is below minimum 3, clamping", c.DefaultSlotCount))
		c.DefaultSlotCount = 3
	} else if c.DefaultSlotCount > 64 {
		r.Warnings = append(r.Warnings, fmt.Errorf("default_slot_count %d exceeds maximum 64, clamping", c.DefaultSlotCount))
		c.DefaultSlotCount = 64
	}

	if c.HandshakeTimeoutSeconds < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("handshake_timeout_seconds %d is below minimum 1, clamping", c.HandshakeTimeoutSeconds))
		c.HandshakeTimeoutSeconds = 60
	}
	if c.DispatchTimeoutSeconds < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("dispatch_timeout_seconds %d is below minimum 1, clamping", c.DispatchTimeoutSeconds))
		c.DispatchTimeoutSeconds = 5
	}
	if c.StopGraceSeconds < 0 {
		r.Warnings = append(r.Warnings, fmt.Errorf("stop_grace_seconds %d is negative, clamping to 0", c.StopGraceSeconds))
		c.StopGraceSeconds = 0
	}

	backend := strings.ToLower(c.AnimStoreBackend)
	if backend == "" {
		r.Warnings = append(r.Warnings, fmt.Errorf("animstore_backend empty, defaulting to local"))
		c.AnimStoreBackend = "local"
	} else if !knownBackends[backend] {
		r.Fatals = append(r.Fatals, fmt.Errorf("animstore_backend %q is not a supported store (local, s3, azureblob, gcs, b2)", c.AnimStoreBackend))
	}

	switch backend {
	case "s3":
		if c.S3Bucket == "" {
			r.Fatals = append(r.Fatals, fmt.Errorf("animstore_backend s3 requires s3_bucket"))
		}
	case "azureblob":
		if c.AzureAccount == "" || c.AzureContainer == "" {
			r.Fatals = append(r.Fatals, fmt.Errorf("animstore_backend azureblob requires azure_account and azure_container"))
		}
	case "gcs":
		if c.GCSBucket == "" {
			r.Fatals = append(r.Fatals, fmt.Errorf("animstore_backend gcs requires gcs_bucket"))
		}
	case "b2":
		if c.B2Bucket == "" || c.B2AccountID == "" || c.B2AppKey == "" {
			r.Fatals = append(r.Fatals, fmt.Errorf("animstore_backend b2 requires b2_bucket, b2_account_id, and b2_app_key"))
		}
	}

	if c.ListenAddr != "" && c.ListenAddr[0] != ':' {
		if _, err := url.Parse("http://" + c.ListenAddr); err != nil {
			r.Fatals = append(r.Fatals, fmt.Errorf("listen_addr %q is not a valid address: %w", c.ListenAddr, err))
		}
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	return r
}
