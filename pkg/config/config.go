package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/kacperjurak/gos2pcore"
)

// Config holds the decode settings shared by the processor and handlers
type Config struct {
	RowPolicy    gos2pcore.RowPolicy
	CacheEnabled bool
	CachePath    string // empty keeps the cache in memory
	CacheTTL     time.Duration
	S3Bucket     string
	S3Endpoint   string
	AWSRegion    string
	Quiet        bool
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	Env             string
	AllowedOrigins  []string
	WorkerCount     int
	WebhookURL      string
	EnableProfiling bool
	ProfilingPort   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		RowPolicy:    gos2pcore.RowPolicyFail,
		CacheEnabled: true,
		CacheTTL:     time.Hour,
		AWSRegion:    "us-east-1",
	}
}

// DefaultServerConfig returns server configuration with sensible defaults
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           "8080",
		Env:            "dev",
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		WorkerCount:    5,
		ProfilingPort:  "6060",
	}
}

// Load reads configuration from environment variables and an optional
// .env.<ENVIRONMENT> file in the working directory.
func Load() (*Config, *ServerConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	v.SetConfigName(".env." + v.GetString("ENVIRONMENT"))
	v.SetConfigType("env")
	v.AddConfigPath(".")
	// The file is optional; environment variables still win over it.
	_ = v.ReadInConfig()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	srv := DefaultServerConfig()

	v.SetDefault("PORT", srv.Port)
	v.SetDefault("ENVIRONMENT", srv.Env)
	v.SetDefault("ALLOWED_ORIGINS", strings.Join(srv.AllowedOrigins, ","))
	v.SetDefault("WORKER_COUNT", srv.WorkerCount)
	v.SetDefault("WEBHOOK_URL", "")
	v.SetDefault("ENABLE_PROFILING", srv.EnableProfiling)
	v.SetDefault("PROFILING_PORT", srv.ProfilingPort)

	v.SetDefault("ROW_POLICY", def.RowPolicy.String())
	v.SetDefault("CACHE_ENABLED", def.CacheEnabled)
	v.SetDefault("CACHE_PATH", "")
	v.SetDefault("CACHE_TTL", def.CacheTTL.String())
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("AWS_REGION", def.AWSRegion)
	v.SetDefault("QUIET", false)
}

func fromViper(v *viper.Viper) (*Config, *ServerConfig, error) {
	policy, err := gos2pcore.ParseRowPolicy(v.GetString("ROW_POLICY"))
	if err != nil {
		return nil, nil, fmt.Errorf("ROW_POLICY: %w", err)
	}

	workers := v.GetInt("WORKER_COUNT")
	if workers <= 0 {
		return nil, nil, fmt.Errorf("WORKER_COUNT must be positive, got %d", workers)
	}

	cfg := &Config{
		RowPolicy:    policy,
		CacheEnabled: v.GetBool("CACHE_ENABLED"),
		CachePath:    v.GetString("CACHE_PATH"),
		CacheTTL:     v.GetDuration("CACHE_TTL"),
		S3Bucket:     v.GetString("S3_BUCKET"),
		S3Endpoint:   v.GetString("S3_ENDPOINT"),
		AWSRegion:    v.GetString("AWS_REGION"),
		Quiet:        v.GetBool("QUIET"),
	}

	srv := &ServerConfig{
		Port:            v.GetString("PORT"),
		Env:             v.GetString("ENVIRONMENT"),
		AllowedOrigins:  splitList(v.GetString("ALLOWED_ORIGINS")),
		WorkerCount:     workers,
		WebhookURL:      v.GetString("WEBHOOK_URL"),
		EnableProfiling: v.GetBool("ENABLE_PROFILING"),
		ProfilingPort:   v.GetString("PROFILING_PORT"),
	}

	log.Info().
		Str("env", srv.Env).
		Str("row_policy", cfg.RowPolicy.String()).
		Bool("cache", cfg.CacheEnabled).
		Int("workers", srv.WorkerCount).
		Strs("allowed_origins", srv.AllowedOrigins).
		Msg("configuration loaded")

	return cfg, srv, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
