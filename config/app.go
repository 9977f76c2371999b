package config

import (
	"fmt"
	"time"

	"github.com/leeforge/fresson/logging"
	"github.com/leeforge/fresson/media/storage"
	"github.com/leeforge/fresson/metrics"
	"github.com/leeforge/fresson/middleware"
	"github.com/leeforge/fresson/redis_client"
)

// AppConfig is the full configuration of the fresson service.
type AppConfig struct {
	Server    ServerConfig               `mapstructure:"server" yaml:"server"`
	Log       logging.Config             `mapstructure:"log" yaml:"log"`
	Pipeline  PipelineConfig             `mapstructure:"pipeline" yaml:"pipeline"`
	Storage   storage.Config             `mapstructure:"storage" yaml:"storage"`
	Cache     CacheConfig                `mapstructure:"cache" yaml:"cache"`
	RateLimit middleware.RateLimitConfig `mapstructure:"rate-limit" yaml:"rate-limit"`
	Security  middleware.SecurityConfig  `mapstructure:"security" yaml:"security"`
	Redis     redis_client.Config        `mapstructure:"redis" yaml:"redis"`
	Metrics   metrics.Config             `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" default:":8080" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout" yaml:"read-timeout" default:"30s"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout" yaml:"write-timeout" default:"2m"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" yaml:"shutdown-timeout" default:"15s"`
	// MaxUploadMB bounds the whole multipart body.
	MaxUploadMB int64 `mapstructure:"max-upload-mb" yaml:"max-upload-mb" default:"20" validate:"min=1"`
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// PipelineConfig bounds how the service runs the filter.
type PipelineConfig struct {
	// MaxConcurrent caps simultaneous runs; 0 means GOMAXPROCS.
	MaxConcurrent int `mapstructure:"max-concurrent" yaml:"max-concurrent" validate:"min=0"`
	// AcquireTimeout is how long a request may wait for a free slot.
	AcquireTimeout time.Duration `mapstructure:"acquire-timeout" yaml:"acquire-timeout" default:"30s"`
	// MaxPixels rejects sources larger than width*height.
	MaxPixels int64 `mapstructure:"max-pixels" yaml:"max-pixels" default:"40000000" validate:"min=1"`
	// JPEGQuality is used for the exported JPEG stream.
	JPEGQuality int `mapstructure:"jpeg-quality" yaml:"jpeg-quality" default:"90" validate:"min=1,max=100"`
}

// CacheConfig configures the decoded texture cache.
type CacheConfig struct {
	TextureTTL time.Duration `mapstructure:"texture-ttl" yaml:"texture-ttl" default:"10m"`
	MaxEntries int           `mapstructure:"max-entries" yaml:"max-entries" default:"32" validate:"min=1"`
}

// Validate checks cross-field constraints the tags cannot express.
func (c *AppConfig) Validate() error {
	if c.RateLimit.Enabled && c.RateLimit.Backend == "redis" && c.Redis.Host == "" {
		return fmt.Errorf("rate-limit backend redis requires redis.host")
	}
	if c.Storage.Type == "oss" && c.Storage.OSS.Bucket == "" {
		return fmt.Errorf("storage type oss requires storage.oss.bucket")
	}
	return nil
}

// Load reads, defaults and validates the application configuration.
func Load(opts Options) (*AppConfig, *Config, error) {
	cfg, err := New(opts)
	if err != nil {
		return nil, nil, err
	}

	app := &AppConfig{}
	if err := cfg.BindWithDefaults(app); err != nil {
		return nil, nil, err
	}
	return app, cfg, nil
}
