package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/keysmith/internal/audit"
	"github.com/dropDatabas3/keysmith/internal/cache"
	"github.com/dropDatabas3/keysmith/internal/config"
	"github.com/dropDatabas3/keysmith/internal/http/controllers"
	"github.com/dropDatabas3/keysmith/internal/http/router"
	"github.com/dropDatabas3/keysmith/internal/http/services"
	"github.com/dropDatabas3/keysmith/internal/jwt"
	"github.com/dropDatabas3/keysmith/internal/keyring"
	"github.com/dropDatabas3/keysmith/internal/metrics"
	"github.com/dropDatabas3/keysmith/internal/observability/logger"
	"github.com/dropDatabas3/keysmith/internal/rotation"
	"github.com/dropDatabas3/keysmith/internal/store/pg"
)

const version = "0.3.0"

func main() {
	// .env es opcional; las env vars reales siempre ganan.
	_ = godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "ruta al config.yaml (opcional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "keysmith",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	l := logger.Named("service")

	if err := metrics.RegisterRotation(nil); err != nil {
		l.Warn("metrics registration", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ─── Cache (backend del JWKS cache y del lock distribuido) ───
	cacheClient, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Driver,
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
		Prefix:   cfg.Cache.Prefix,
	})
	if err != nil {
		l.Fatal("cache init", logger.Err(err))
	}
	defer func() { _ = cacheClient.Close() }()

	// ─── Registro de claves ───
	reg := keyring.NewRegistry(cfg.RotationGrace())

	var store *pg.Store
	if cfg.Storage.Driver == "postgres" && cfg.Storage.DSN != "" {
		store, err = pg.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			l.Fatal("postgres open", logger.Err(err))
		}
		defer store.Close()
	}

	if err := bootstrapKeys(ctx, cfg, reg, store); err != nil {
		l.Fatal("key bootstrap", logger.Err(err))
	}
	if _, err := reg.Active(); err != nil {
		l.Warn("starting without an active signing key; token issuance will fail until one is introduced")
	}

	// ─── JWKS, mutator, coordinator ───
	jwksCache := jwt.NewJWKSCache(cacheClient, cfg.JWKSCacheTTL())
	emitter := audit.LogEmitter{}
	mutator := keyring.NewMutator(reg, jwksCache, emitter)
	locker := rotation.NewCacheLocker(cacheClient)
	coord := rotation.NewCoordinator(reg, mutator, locker, cfg.Rotation.LockKey, cfg.LockTTL(), emitter)
	scheduler := rotation.NewScheduler(coord, cfg.RotationInterval())

	// ─── HTTP ───
	jwksSvc := services.NewJWKSService(reg, jwksCache)
	keysSvc := services.NewKeysService(reg, jwksCache, storeOrNil(store), emitter)

	handler := router.New(router.Deps{
		JWKS:        controllers.NewJWKSController(jwksSvc),
		Keys:        controllers.NewKeysController(keysSvc),
		Health:      controllers.NewHealthController(cacheClient),
		AdminAPIKey: cfg.Server.AdminAPIKey,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info("http server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		schedCtx := logger.ToContext(gctx, l)
		if err := scheduler.Run(schedCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		l.Fatal("service exited", logger.Err(err))
	}
	l.Info("service stopped")
}

// bootstrapKeys puebla el registro inicial: desde Postgres si hay storage
// configurado, si no desde el bloque keys del YAML. El mapa inicial lo provee
// un colaborador externo; acá solo se carga y se fija el puntero activo.
func bootstrapKeys(ctx context.Context, cfg *config.Config, reg *keyring.Registry, store *pg.Store) error {
	if store != nil {
		keys, activeKID, err := store.LoadKeys(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := reg.Register(k); err != nil {
				return err
			}
		}
		if activeKID != "" {
			return reg.SetActive(activeKID)
		}
		return nil
	}

	for _, e := range cfg.Keys.Ring {
		material, err := config.MaterialOf(e)
		if err != nil {
			return err
		}
		if err := reg.Register(keyring.Key{KID: e.KID, Alg: e.Alg, Material: material}); err != nil {
			return err
		}
	}
	if cfg.Keys.Active != "" {
		return reg.SetActive(cfg.Keys.Active)
	}
	return nil
}

// storeOrNil evita pasar un *pg.Store nil tipado dentro de la interfaz.
func storeOrNil(s *pg.Store) services.KeyStore {
	if s == nil {
		return nil
	}
	return s
}
