package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	FanoutLocal = "local"
	FanoutRedis = "redis"
)

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"5000"    validate:"min=1000,max=65535"`
	SocketPath     string `env:"SOCKET_PATH"      envDefault:"/socket" validate:"required,startswith=/"`

	PingInterval  time.Duration `env:"PING_INTERVAL"   envDefault:"25s"     validate:"gt=0"`
	PingTimeout   time.Duration `env:"PING_TIMEOUT"    envDefault:"10s"     validate:"gt=0"`
	MaxFrameBytes int64         `env:"MAX_FRAME_BYTES" envDefault:"1048576" validate:"min=1024"`

	RoomSweepInterval  time.Duration `env:"ROOM_SWEEP_INTERVAL"  envDefault:"1m"  validate:"gt=0"`
	RoomMirrorInterval time.Duration `env:"ROOM_MIRROR_INTERVAL" envDefault:"10s" validate:"gt=0"`

	RedisEnabled bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost    string `env:"REDIS_HOST"    envDefault:"localhost"`
	RedisPort    uint16 `env:"REDIS_PORT"    envDefault:"6379" validate:"min=1000,max=65535"`
	FanoutMode   string `env:"FANOUT_MODE"   envDefault:"local" validate:"oneof=local redis"`

	// InstanceID scopes every Redis key and channel; one process per id.
	InstanceID    string        `env:"INSTANCE_ID"     envDefault:"default" validate:"required,max=64,excludesall=:"`
	RedisLeaseTTL time.Duration `env:"REDIS_LEASE_TTL" envDefault:"30s"     validate:"gte=3s"`

	LogMode  string `env:"LOG_MODE"  envDefault:"development" validate:"oneof=development production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"       validate:"oneof=debug info warn error"`
}

// LoadConfig reads envFile (when present) and then the process environment.
func LoadConfig(envFile string) (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(envFile)
	if err != nil {
		zap.L().Debug(".env file not found", zap.String("file", envFile), zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	validate.RegisterStructValidation(fanoutNeedsRedis, Config{})
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

func fanoutNeedsRedis(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if cfg.FanoutMode == FanoutRedis && !cfg.RedisEnabled {
		sl.ReportError(cfg.FanoutMode, "FanoutMode", "FanoutMode", "redis_enabled", "")
	}
}
