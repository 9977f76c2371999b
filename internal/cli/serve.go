package cli

import (
	"context"
	"fmt"
	"image"

	"github.com/go-redis/redis/v8"
	"github.com/leeforge/fresson/cache"
	"github.com/leeforge/fresson/concurrency"
	"github.com/leeforge/fresson/config"
	"github.com/leeforge/fresson/http/server"
	"github.com/leeforge/fresson/logging"
	"github.com/leeforge/fresson/media/processor"
	"github.com/leeforge/fresson/media/storage"
	"github.com/leeforge/fresson/metrics"
	"github.com/leeforge/fresson/middleware"
	"github.com/leeforge/fresson/redis_client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *CLI) serveCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Long: `Serve loads config.yaml (plus config.local.yaml and the files of the
current GO_ENV_MODE) from --config, falling back to $CONFIG_PATH or ./config.
Every key can be overridden with FRESSON_<SECTION>_<KEY> environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := config.DefaultOptions()
			if configDir != "" {
				opts.BasePath = configDir
			}
			app, _, err := config.Load(opts)
			if err != nil {
				return err
			}
			if c.verbose {
				app.Log.Level = "debug"
			}
			return serve(cmd.Context(), app)
		},
	}
	cmd.Flags().StringVarP(&configDir, "config", "c", "", "configuration directory")

	return cmd
}

// serve wires every component from app and blocks until ctx is canceled.
func serve(ctx context.Context, app *config.AppConfig) error {
	logger := logging.Init(app.Log)
	defer logging.CloseAllWriters()
	defer logger.Sync()

	textures, err := storage.New(app.Storage)
	if err != nil {
		return fmt.Errorf("texture storage: %w", err)
	}

	textureCache := cache.NewTTLCache[*image.NRGBA](app.Cache.TextureTTL, app.Cache.MaxEntries)
	textureCache.StartJanitor(ctx, app.Cache.TextureTTL)

	var redisClient redis.UniversalClient
	if app.Redis.Enabled() {
		client, err := redis_client.NewRedis(ctx, app.Redis, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		redisClient = client
	}

	var rateLimiter *middleware.RateLimiter
	if app.RateLimit.Enabled {
		backend, err := middleware.NewBackend(app.RateLimit, redisClient)
		if err != nil {
			return err
		}
		rateLimiter = middleware.NewRateLimiter(backend, app.RateLimit, logger)
	}

	security := app.Security
	security.RequestSize = app.Server.MaxUploadBytes()

	pipeline := processor.NewPipeline(processor.Config{
		JPEGQuality: app.Pipeline.JPEGQuality,
		MaxPixels:   app.Pipeline.MaxPixels,
	}, logger)
	limiter := concurrency.NewLimiter(app.Pipeline.MaxConcurrent, app.Pipeline.AcquireTimeout)

	var collector *metrics.Collector
	if app.Metrics.Enabled {
		collector = metrics.NewCollector()
	}

	logger.Info("fresson starting",
		zap.String("version", version),
		zap.String("storage", textures.Name()),
		zap.String("rate_limit_backend", app.RateLimit.Backend),
		zap.Int("max_concurrent", limiter.Stats().Capacity),
	)

	srv := server.New(server.Config{
		Addr:            app.Server.Addr,
		ReadTimeout:     app.Server.ReadTimeout,
		WriteTimeout:    app.Server.WriteTimeout,
		ShutdownTimeout: app.Server.ShutdownTimeout,
		MaxUploadBytes:  app.Server.MaxUploadBytes(),
	}, server.Deps{
		Pipeline:     pipeline,
		Limiter:      limiter,
		Textures:     textures,
		TextureCache: textureCache,
		RateLimiter:  rateLimiter,
		Security:     middleware.NewSecurityMiddleware(security),
		Metrics:      collector,
		Logger:       logger,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}
	logger.Info("fresson stopped")
	return nil
}
