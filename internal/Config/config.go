package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ratelimit "github.com/shii9/ReconTrail/internal/Ratelimit"
)

// Config is the top-level YAML configuration. Everything has a workable
// default so a missing file is not an error; an invalid rate limit is,
// because it is the one class of error that must abort before any stage runs.
type Config struct {
	RateLimiting RateLimiting  `yaml:"rate_limiting"`
	WebhookURL   string        `yaml:"webhook_url"`
	Tools        ToolSettings  `yaml:"tools"`
	StageTimeout time.Duration `yaml:"stage_timeout"`
}

type RateLimiting struct {
	GlobalRPS     float64            `yaml:"global_rps"`
	BurstCapacity int                `yaml:"burst_capacity"`
	ToolLimits    map[string]float64 `yaml:"tool_limits"`
	Disabled      bool               `yaml:"disabled"`
}

type ToolSettings struct {
	HTTPXPorts      string `yaml:"httpx_ports"`
	Threads         int    `yaml:"threads"`
	SubfinderRL     int    `yaml:"subfinder_rl"`
	NucleiTemplates string `yaml:"nuclei_templates"`
	SecretFinder    string `yaml:"secretfinder_path"`
	Wordlist        string `yaml:"wordlist"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		RateLimiting: RateLimiting{
			GlobalRPS:     10,
			BurstCapacity: 50,
		},
		Tools: ToolSettings{
			HTTPXPorts:  "443,80,8080,8000,8888",
			Threads:     50,
			SubfinderRL: 25,
		},
		StageTimeout: time.Hour,
	}
}

// Load reads path over the defaults. A missing file yields the defaults; a
// present but invalid file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = time.Hour
	}
	return cfg, nil
}

// ConfigureLimiter applies the rate-limiting section to limiter. Zero and
// negative rates are rejected here, before any stage runs.
func (c Config) ConfigureLimiter(limiter *ratelimit.Limiter) error {
	if err := limiter.Configure(c.RateLimiting.GlobalRPS, c.RateLimiting.BurstCapacity); err != nil {
		return err
	}
	for tool, rps := range c.RateLimiting.ToolLimits {
		if err := limiter.SetToolLimit(tool, rps); err != nil {
			return err
		}
	}
	if c.RateLimiting.Disabled {
		limiter.Disable()
	}
	return nil
}
