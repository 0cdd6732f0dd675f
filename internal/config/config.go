package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/edgepass/idphoto/internal/logging"
)

// EnvPrefix is prepended to environment overrides, e.g. IDPHOTO_ENGINE_QUALITY.
const EnvPrefix = "IDPHOTO"

// Config is the full runtime configuration.
type Config struct {
	Log    logging.Config `mapstructure:"log"`
	Engine EngineConfig   `mapstructure:"engine"`
	Server ServerConfig   `mapstructure:"server"`
	Cache  CacheConfig    `mapstructure:"cache"`
	Batch  BatchConfig    `mapstructure:"batch"`
}

// EngineConfig configures the processing engine.
type EngineConfig struct {
	// ModelPath is handed to the engine and reserved for a segmentation model.
	ModelPath        string `mapstructure:"model_path"`
	Quality          int    `mapstructure:"quality" default:"95" validate:"gte=1,lte=100"`
	Format           string `mapstructure:"format" default:"jpeg" validate:"oneof=jpeg jpg png webp"`
	Resampler        string `mapstructure:"resampler" default:"lanczos" validate:"oneof=lanczos catmullrom box area nfnt"`
	DegeneratePolicy string `mapstructure:"degenerate_policy" default:"upscale" validate:"oneof=upscale reject"`
}

// ServerConfig configures `idphoto serve`.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" default:":8080" validate:"required"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" default:"20971520" validate:"gte=1024"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"15s"`
}

// CacheConfig configures the optional Redis result cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Addr    string        `mapstructure:"addr" default:"localhost:6379" validate:"required_if=Enabled true"`
	DB      int           `mapstructure:"db" validate:"gte=0"`
	TTL     time.Duration `mapstructure:"ttl" default:"1h"`
}

// BatchConfig configures `idphoto batch`.
type BatchConfig struct {
	Workers     int  `mapstructure:"workers" validate:"gte=0"`
	NoOverwrite bool `mapstructure:"no_overwrite"`
}

var validate = validator.New()

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	_ = defaults.Set(&c)
	return c
}

// Load reads path (optional; empty skips the file), applies IDPHOTO_*
// environment overrides, then validates. Struct defaults reach viper as
// SetDefault values, so an explicit false or zero in the file or env wins.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Env overrides only apply to keys viper knows about.
	bindDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks field constraints and reports every violation.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", fe.Namespace(), describe(fe)))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}

func bindDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("log.file", c.Log.File)
	v.SetDefault("log.max_size_mb", c.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", c.Log.MaxBackups)
	v.SetDefault("log.max_age_days", c.Log.MaxAgeDays)
	v.SetDefault("log.compress", c.Log.Compress)

	v.SetDefault("engine.model_path", c.Engine.ModelPath)
	v.SetDefault("engine.quality", c.Engine.Quality)
	v.SetDefault("engine.format", c.Engine.Format)
	v.SetDefault("engine.resampler", c.Engine.Resampler)
	v.SetDefault("engine.degenerate_policy", c.Engine.DegeneratePolicy)

	v.SetDefault("server.addr", c.Server.Addr)
	v.SetDefault("server.max_upload_bytes", c.Server.MaxUploadBytes)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)

	v.SetDefault("cache.enabled", c.Cache.Enabled)
	v.SetDefault("cache.addr", c.Cache.Addr)
	v.SetDefault("cache.db", c.Cache.DB)
	v.SetDefault("cache.ttl", c.Cache.TTL)

	v.SetDefault("batch.workers", c.Batch.Workers)
	v.SetDefault("batch.no_overwrite", c.Batch.NoOverwrite)
}
