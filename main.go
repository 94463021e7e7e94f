package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomsync/internal/config"
	"roomsync/internal/http/http_server"
	"roomsync/internal/redis/redis_client"
	"roomsync/internal/redis/redis_keys"
	"roomsync/internal/redis/redis_lease"
	"roomsync/internal/registry"
	"roomsync/internal/roommirror"
	"roomsync/internal/roomsweep"
	"roomsync/internal/ws"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	zap.ReplaceGlobals(Log)

	fs := pflag.NewFlagSet("roomsync", pflag.ExitOnError)
	envFile := fs.StringP("env-file", "e", ".env", "dotenv file loaded before reading the environment")
	logLevel := fs.StringP("log-level", "l", "", "overrides LOG_LEVEL")
	_ = fs.Parse(os.Args[1:])

	// 1. Load configuration
	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	Log, err = newLogger(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		zap.L().Fatal("Failed to build logger", zap.Error(err))
	}
	defer Log.Sync()
	zap.ReplaceGlobals(Log)
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Room registry + background sweeper
	reg := registry.New()
	roomsweep.Run(ctx, reg, cfg.RoomSweepInterval)

	// 4. WebSockets hub + fan‑out (Redis when enabled)
	hub := ws.NewHub()
	var fanout ws.Fanout = ws.NewLocalFanout(hub)
	var leaseLost <-chan struct{}

	if cfg.RedisEnabled {
		var redisClient *redis.Client
		redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		Log.Debug("Redis client created successfully")

		// Rooms live in this process: claim the namespace so no second
		// process mirrors or fans out under the same instance id.
		ns := redis_keys.New(cfg.InstanceID)
		lease, err := redis_lease.Acquire(ctx, redisClient, ns.Owner(), uuid.NewString(), cfg.RedisLeaseTTL)
		if err != nil {
			Log.Fatal("Failed to claim Redis namespace", zap.String("instance", cfg.InstanceID), zap.Error(err))
		}
		defer func() {
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := lease.Release(rctx); err != nil {
				Log.Warn("Failed to release Redis namespace", zap.Error(err))
			}
		}()
		leaseLost = lease.Keep(ctx, cfg.RedisLeaseTTL/3)

		// Background: room summaries ➜ Redis hashes
		roommirror.Run(ctx, redisClient, reg, ns, cfg.RoomMirrorInterval)

		if cfg.FanoutMode == config.FanoutRedis {
			fanout = ws.NewRedisFanout(ctx, redisClient, hub, ns)
		}
	}

	// 5. Initialize the WS server
	wsSrv := ws.NewWsServer(reg, hub, fanout, ws.Options{
		PingInterval:  cfg.PingInterval,
		PingTimeout:   cfg.PingTimeout,
		MaxFrameBytes: cfg.MaxFrameBytes,
	})

	// 6. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, cfg.SocketPath, wsSrv, reg)
	errc := make(chan error, 1)
	go func() { errc <- httpServer.Start() }()

	select {
	case err = <-errc:
		if err != nil {
			Log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	case <-leaseLost:
		Log.Error("Redis namespace taken over, shutting down")
		_ = httpServer.Dispose()
	case <-ctx.Done():
		Log.Info("shutting down")
		_ = httpServer.Dispose()
	}
}

func newLogger(mode, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewDevelopmentConfig()
	if mode == "production" {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
