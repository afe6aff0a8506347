package config

import "time"

// LogFormat selects the zap encoder used for process logs.
type LogFormat string

const (
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

// Config is the top-level curatordash configuration, corresponding to .curatordash.yml.
type Config struct {
	BackendURL      string        `yaml:"backend_url" koanf:"backend_url"`
	Port            int           `yaml:"port" koanf:"port"`
	PollInterval    time.Duration `yaml:"poll_interval" koanf:"poll_interval"`
	ToastTTL        time.Duration `yaml:"toast_ttl" koanf:"toast_ttl"`
	RequestTimeout  time.Duration `yaml:"request_timeout" koanf:"request_timeout"`
	DataDir         string        `yaml:"data_dir" koanf:"data_dir"`
	LogLevel        string        `yaml:"log_level" koanf:"log_level"`
	LogFormat       LogFormat     `yaml:"log_format" koanf:"log_format"`
	AllowAllOrigins bool          `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	CSRFKey         string        `yaml:"csrf_key,omitempty" koanf:"csrf_key"`
	SecureCookies   bool          `yaml:"secure_cookies" koanf:"secure_cookies"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BackendURL:   "http://localhost:3000",
		Port:         8080,
		PollInterval: 30 * time.Second,
		ToastTTL:     5 * time.Second,
		DataDir:      ".curatordash",
		LogLevel:     "info",
		LogFormat:    LogFormatConsole,
	}
}
