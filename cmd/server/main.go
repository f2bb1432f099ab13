package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AnshRaj112/ura-storage-backend/internal/config"
	"github.com/AnshRaj112/ura-storage-backend/internal/database"
	"github.com/AnshRaj112/ura-storage-backend/internal/handlers"
	"github.com/AnshRaj112/ura-storage-backend/internal/middleware"
	"github.com/AnshRaj112/ura-storage-backend/internal/routes"
	"github.com/AnshRaj112/ura-storage-backend/internal/services"
	"github.com/AnshRaj112/ura-storage-backend/internal/store"
	"github.com/AnshRaj112/ura-storage-backend/pkg/clientip"
	"github.com/AnshRaj112/ura-storage-backend/pkg/utils"
	"github.com/go-chi/chi/v5"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}
	cfg := config.Load()
	setupLogger(cfg)

	if err := clientip.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Fatal().Err(err).Msg("TRUSTED_PROXIES is invalid")
	}

	var encryptor *utils.Encryptor
	if cfg.EncryptionKey == "" {
		log.Warn().Msg("ENCRYPTION_KEY not set; account emails are stored as given. Generate one with: openssl rand -base64 32")
	} else {
		enc, err := utils.NewEncryptor(cfg.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("ENCRYPTION_KEY is invalid")
		}
		encryptor = enc
		log.Info().Msg("encryption key configured")
	}

	// Redis: sessions, live updates, snapshot cache, rate limiting
	redisClient, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()

	accountStore, closeStore := openStore(cfg)
	defer closeStore()

	// Postgres is optional: without it security events are not recorded
	var audit services.AuditLog = services.NopAuditLog{}
	var attempts services.UnlockAttemptCounter
	if cfg.PostgresURI != "" {
		pg, err := database.ConnectPostgres(cfg.PostgresURI)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
		}
		defer pg.Close()
		pgAudit := services.NewPostgresAuditLog(pg)
		audit, attempts = pgAudit, pgAudit
	} else {
		log.Warn().Msg("POSTGRES_URI not set; security audit log disabled")
	}

	host, err := openFileHost(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("file_host", cfg.FileHost).Msg("failed to initialize file host")
	}

	sessions := services.NewSessionManager(redisClient)
	notifier := services.NewRedisNotifier(redisClient)
	cache := services.NewSnapshotCache(redisClient, services.DefaultSnapshotTTL)
	// Cache invalidation runs before the live notification so streams reload fresh data
	changes := services.ChangePublishers{cache, notifier}

	storage := services.NewStorageService(accountStore, host, services.NewURLFetcher(cfg.UploadTimeout), changes).
		WithURLUploadLimit(cfg.MaxURLUploadBytes)

	h := &handlers.Handler{
		Accounts: services.NewAccountService(services.AccountServiceConfig{
			Store:     accountStore,
			Sessions:  sessions,
			Audit:     audit,
			Attempts:  attempts,
			Publisher: changes,
			Encryptor: encryptor,
			Cache:     cache,
		}),
		Storage:        storage,
		Sessions:       sessions,
		Changes:        notifier,
		RequestTimeout: cfg.RequestTimeout,
		UploadTimeout:  cfg.UploadTimeout,
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders, HostCheck, per-IP and credential rate limits
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		log.Info().Msg("production security enabled")
	} else {
		r.Use(middleware.NewRedisRateLimiter(redisClient).Middleware)
	}

	routes.SetupRoutes(r, h)
	_ = routes.Walk(r, func(method, route string) {
		log.Debug().Str("method", method).Str("route", route).Msg("route registered")
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store).Str("file_host", cfg.FileHost).Msg("storage backend running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func openStore(cfg *config.Config) (store.Store, func()) {
	if cfg.Store == config.StoreMemory {
		log.Warn().Msg("STORE=memory: data is lost on restart")
		return store.NewMemoryStore(), func() {}
	}

	log.Info().Str("uri", maskURI(cfg.MongoURI)).Msg("connecting to MongoDB")
	client, db, err := database.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}

	mongoStore := store.NewMongoStore(db)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to ensure MongoDB indexes")
	}

	return mongoStore, func() {
		if err := database.DisconnectMongo(client); err != nil {
			log.Warn().Err(err).Msg("disconnecting MongoDB")
		}
	}
}

func openFileHost(cfg *config.Config) (services.FileHost, error) {
	switch cfg.FileHost {
	case config.FileHostCloudinary:
		if cfg.CloudinaryName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, errors.New("cloudinary credentials not set")
		}
		return services.NewCloudinaryHost(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	case config.FileHostCatbox:
		return services.NewCatboxHost(cfg.CatboxEndpoint, cfg.UploadTimeout), nil
	default:
		return nil, errors.New("unknown FILE_HOST " + cfg.FileHost)
	}
}

// maskURI hides the password in a connection string.
func maskURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	scheme := strings.Index(uri, "://")
	if at == -1 || scheme == -1 {
		return uri
	}
	creds := uri[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon != -1 {
		return uri[:scheme+3] + creds[:colon] + ":***" + uri[at:]
	}
	return uri
}
