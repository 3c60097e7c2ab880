package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config is the daemon's full configuration surface: HTTP listener, default
// session parameters, the animation/VAE asset store, and logging.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`

	DefaultFPS              float64 `mapstructure:"default_fps"`
	DefaultSlotCount        int     `mapstructure:"default_slot_count"`
	HandshakeTimeoutSeconds int     `mapstructure:"handshake_timeout_seconds"`
	DispatchTimeoutSeconds  int     `mapstructure:"dispatch_timeout_seconds"`
	StopGraceSeconds        int     `mapstructure:"stop_grace_seconds"`
	RunDir                  string  `mapstructure:"run_dir"`

	// AnimStoreBackend selects which Store implementation backs the
	// animation/VAE asset listing: "local", "s3", "azureblob", "gcs", "b2".
	AnimStoreBackend string `mapstructure:"animstore_backend"`
	AnimationDir     string `mapstructure:"animation_dir"`
	VAEDir           string `mapstructure:"vae_dir"`

	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Prefix    string `mapstructure:"s3_prefix"`

	AzureAccount    string `mapstructure:"azure_account"`
	AzureAccountKey string `mapstructure:"azure_account_key"`
	AzureContainer  string `mapstructure:"azure_container"`

	GCSBucket string `mapstructure:"gcs_bucket"`

	B2Bucket    string `mapstructure:"b2_bucket"`
	B2AccountID string `mapstructure:"b2_account_id"`
	B2AppKey    string `mapstructure:"b2_app_key"`

	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

// Default returns the configuration a fresh install runs with.
func Default() *Config {
	return &Config{
		ListenAddr:              ":8087",
		DefaultFPS:              30,
		DefaultSlotCount:        3,
		HandshakeTimeoutSeconds: 60,
		DispatchTimeoutSeconds:  5,
		StopGraceSeconds:        3,
		RunDir:                  os.TempDir(),

		AnimStoreBackend: "local",
		AnimationDir:     filepath.Join(GetDataDir(), "animations"),
		VAEDir:           filepath.Join(GetDataDir(), "vae"),

		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  50,
		LogMaxBackups: 3,
	}
}

// Load reads configuration from cfgFile (or the platform default search
// path) layered under environment variables prefixed ANIMSTREAM_, then
// validates it. Fatal validation errors block startup; warnings are logged
// and the (possibly clamped) config is returned.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("animstreamd")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ANIMSTREAM")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		slog.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		for _, err := range result.Fatals {
			slog.Error("config validation fatal", "error", err)
		}
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

// Save writes cfg to the platform default config path.
func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

// SaveTo writes cfg to cfgFile, or the platform default path if empty.
func SaveTo(cfg *Config, cfgFile string) error {
	viper.Set("listen_addr", cfg.ListenAddr)
	viper.Set("default_fps", cfg.DefaultFPS)
	viper.Set("default_slot_count", cfg.DefaultSlotCount)
	viper.Set("animstore_backend", cfg.AnimStoreBackend)
	viper.Set("animation_dir", cfg.AnimationDir)
	viper.Set("vae_dir", cfg.VAEDir)
	viper.Set("log_level", cfg.LogLevel)
	viper.Set("log_format", cfg.LogFormat)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "animstreamd.yaml")
		if err := os.MkdirAll(configDir(), 0755); err != nil {
			return err
		}
	}

	return viper.WriteConfigAs(cfgPath)
}

// GetDataDir returns the platform-specific data directory for bundled
// animation and VAE assets when the local animstore backend is selected.
func GetDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "animstreamd", "data")
	case "darwin":
		return "/Library/Application Support/animstreamd/data"
	default:
		return "/var/lib/animstreamd"
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "animstreamd")
	case "darwin":
		return "/Library/Application Support/animstreamd"
	default:
		return "/etc/animstreamd"
	}
}
