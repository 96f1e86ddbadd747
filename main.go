package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"balramcms/api/analytics"
	"balramcms/api/archive"
	"balramcms/api/config"
	"balramcms/api/database"
	"balramcms/api/handlers"
	"balramcms/api/logger"
	"balramcms/api/metrics"
	"balramcms/api/models"
	"balramcms/api/store"
	"balramcms/api/utils"
)

type options struct {
	EnvFile    string `long:"env-file" description:"dotenv file loaded before reading the environment" default:".env"`
	ConfigFile string `long:"config" description:"YAML config file"`
	Port       string `short:"p" long:"port" description:"listen port, overrides PORT"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	envErr := godotenv.Load(opts.EnvFile)

	cfg, err := config.Load(config.LoadOptions{ConfigFile: opts.ConfigFile, Port: opts.Port})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg)
	if envErr != nil {
		log.Debug().Err(envErr).Str("file", opts.EnvFile).Msg("no dotenv file loaded")
	}

	if cfg.GinMode == gin.ReleaseMode || cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()

	eventStore, closeEvents, err := openEventStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.EventStore).Msg("failed to initialize event store")
	}
	defer closeEvents()

	pg, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL database")
	}
	defer pg.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 15*time.Second)
	if err := store.EnsureCatalogTables(schemaCtx, pg.DB); err != nil {
		cancelSchema()
		log.Fatal().Err(err).Msg("failed to prepare catalog tables")
	}
	cancelSchema()

	jwtManager, err := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize JWT manager")
	}

	ingestOpts := []analytics.IngestorOption{analytics.WithMaxBatch(cfg.MaxEventsPerBatch)}
	var archiver *archive.Archiver
	if cfg.Archive.Enabled() {
		s3Client, err := archive.NewS3Client(context.Background(), cfg.Archive.Region)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize S3 client")
		}
		archiver = archive.New(cfg.Archive, m, s3Client)
		archiver.Start()
		ingestOpts = append(ingestOpts, analytics.WithArchiver(archiver))
		log.Info().Str("bucket", cfg.Archive.Bucket).Str("prefix", cfg.Archive.Prefix).Msg("telemetry archive enabled")
	}

	eventTypes := models.NewEventTypes(cfg.ExtraEventTypes...)
	ingestor := analytics.NewIngestor(eventStore, eventTypes, m, ingestOpts...)
	aggregator := analytics.NewAggregator(eventStore, m)

	showDetails := !cfg.IsRelease()
	r := newRouter(routerDeps{
		CORSOrigins: cfg.CORSOrigins,
		JWT:         jwtManager,
		Telemetry:   handlers.NewTelemetryHandlers(ingestor, aggregator, cfg.IngestTimeout, cfg.QueryTimeout, showDetails),
		Shops:       handlers.NewShopHandlers(store.NewShopStore(pg.DB), showDetails),
		Properties:  handlers.NewPropertyHandlers(store.NewPropertyStore(pg.DB), showDetails),
		Auth:        handlers.NewAuthHandlers(store.NewUserStore(pg.DB), jwtManager, cfg.IsProduction()),
		System:      handlers.NewSystemHandlers(m, cfg.Environment),
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("environment", cfg.Environment).Msg("API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("API server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if archiver != nil {
		archiver.Shutdown()
	}
	log.Info().Msg("server exiting")
}

// openEventStore connects the configured telemetry backend and makes sure its
// table exists. The returned func releases the connection.
func openEventStore(cfg config.Config) (analytics.EventStore, func(), error) {
	switch cfg.EventStore {
	case config.EventStoreSQLite:
		db, err := database.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewSQLiteEventStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, func() { db.Close() }, nil

	default:
		ch, err := database.NewClickHouseDB(cfg.ClickHouse)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewClickHouseEventStore(ch)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.EnsureTable(ctx); err != nil {
			ch.Close()
			return nil, nil, err
		}
		return s, ch.Close, nil
	}
}
