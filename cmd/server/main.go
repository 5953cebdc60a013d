package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"personalpage/internal/config"
	"personalpage/internal/persistence/backup"
	"personalpage/internal/persistence/journal"
	"personalpage/internal/persistence/kv"
	"personalpage/internal/posts"
	"personalpage/internal/profile"
	"personalpage/internal/render"
	"personalpage/internal/transport/web"
	"personalpage/internal/transport/ws"
)

func main() {
	var (
		addr           = flag.String("addr", "", "http listen address (default: listen_addr from config)")
		configPath     = flag.String("config", "./configs/page.yaml", "page config path (missing file means built-in defaults)")
		storeBackend   = flag.String("store", "", "store backend override: memory|file|sqlite|redis|postgres")
		disableJournal = flag.Bool("disable_journal", false, "disable the activity journal")
		disableBackups = flag.Bool("disable_backups", false, "disable periodic backups")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := loadConfig(*configPath, logger)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	applyEnvOverrides(&cfg)
	if s := strings.TrimSpace(*storeBackend); s != "" {
		cfg.Store.Backend = s
	}
	if s := strings.TrimSpace(*addr); s != "" {
		cfg.ListenAddr = s
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	openCtx, cancelOpen := context.WithTimeout(ctx, 15*time.Second)
	store, err := kv.Open(openCtx, cfg.StoreConfig())
	cancelOpen()
	if err != nil {
		logger.Fatalf("open %s store: %v", cfg.Store.Backend, err)
	}
	defer store.Close()
	logger.Printf("store backend=%s", cfg.Store.Backend)

	var jr *journal.Journal
	if !*disableJournal {
		jr = journal.New(cfg.Journal.Dir)
		defer jr.Close()
	}

	rt, err := newRuntime(cfg, store, jr, envBool("PP_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()))
	if err != nil {
		logger.Fatalf("build runtime: %v", err)
	}
	if !rt.adminHTTP {
		logger.Printf("admin endpoints disabled (PP_ENABLE_ADMIN_HTTP=false)")
	}

	if !*disableBackups {
		go rt.backups.Loop(ctx, cfg.Backup.Every)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           rt.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// loadConfig treats a missing file as "use defaults" so the binary runs
// without any setup.
func loadConfig(path string, logger *log.Logger) (config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Printf("config %s not found; using defaults", path)
		return config.Load("")
	}
	return config.Load(path)
}

func applyEnvOverrides(cfg *config.Config) {
	cfg.Store.Backend = envString("PP_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.RedisAddr = envString("PP_REDIS_ADDR", cfg.Store.RedisAddr)
	cfg.Store.RedisPassword = envString("PP_REDIS_PASSWORD", cfg.Store.RedisPassword)
	cfg.Store.DSN = envString("PP_POSTGRES_DSN", cfg.Store.DSN)
	cfg.Backup.Keep = envInt("PP_BACKUP_KEEP", cfg.Backup.Keep)
}

type runtime struct {
	cfg       config.Config
	store     kv.Store
	site      *web.Server
	hub       *ws.Hub
	backups   *backup.Runner
	logger    *log.Logger
	adminHTTP bool
}

func newRuntime(cfg config.Config, store kv.Store, jr *journal.Journal, adminHTTP bool) (*runtime, error) {
	renderer, err := render.New(cfg.Locale, cfg.Location())
	if err != nil {
		return nil, err
	}
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	hub := ws.NewHub(log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds))

	postRepo := posts.NewRepository(store, posts.Options{
		Key:    cfg.Keys.Posts,
		Logger: log.New(os.Stdout, "[posts] ", log.LstdFlags|log.Lmicroseconds),
	})
	profileRepo := profile.NewRepository(store, cfg.Keys.Profile, log.New(os.Stdout, "[profile] ", log.LstdFlags|log.Lmicroseconds))

	site := web.NewServer(postRepo, profileRepo, renderer, web.Options{
		Locale:         cfg.Locale,
		Presets:        cfg.Avatar.Presets,
		DefaultProfile: cfg.DefaultProfile,
		MaxUploadBytes: cfg.Avatar.MaxUploadBytes,
		LiveUpdates:    cfg.LiveUpdates,
		Journal:        jr,
		Publisher:      hub,
		Logger:         log.New(os.Stdout, "[web] ", log.LstdFlags|log.Lmicroseconds),
	})

	return &runtime{
		cfg:   cfg,
		store: store,
		site:  site,
		hub:   hub,
		backups: &backup.Runner{
			Store:      store,
			PostsKey:   cfg.Keys.Posts,
			ProfileKey: cfg.Keys.Profile,
			Dir:        cfg.Backup.Dir,
			Keep:       cfg.Backup.Keep,
			Logger:     log.New(os.Stdout, "[backup] ", log.LstdFlags|log.Lmicroseconds),
		},
		logger:    logger,
		adminHTTP: adminHTTP,
	}, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
