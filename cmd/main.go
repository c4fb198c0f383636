// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sealevel/internal/api"
	"sealevel/internal/config"
	"sealevel/internal/dataset"
	"sealevel/internal/elevation"
	"sealevel/internal/geolocate"
	"sealevel/internal/logger"
	"sealevel/internal/metrics"
	"sealevel/internal/middleware"
	"sealevel/internal/migrate"
	"sealevel/internal/region"
	"sealevel/internal/store"
	"sealevel/internal/tile"
	"sealevel/internal/utils"
	"sealevel/internal/version"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb/maptile"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	// 日志初始化
	l := logger.Setup()
	l.Debug("log_init_ok")
	cfg := config.Load()
	l.Debug("config_loaded", "api_base", cfg.APIBase, "data_dir", cfg.DataDir, "store", cfg.StoreBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := region.Load(cfg.RegionsFile)
	if err != nil {
		l.Error("regions_load_error", "path", cfg.RegionsFile, "err", err)
		os.Exit(1)
	}
	l.Info("regions_loaded", "count", catalog.Len(), "file", cfg.RegionsFile)

	var rc *redis.Client
	if cfg.StoreBackend == "redis" || cfg.CacheBackend == "redis" {
		if rc, err = utils.OpenRedis(ctx, cfg.Redis); err != nil {
			l.Error("redis_ping_error", "err", err)
			if cfg.StoreBackend == "redis" {
				os.Exit(1)
			}
		} else {
			l.Info("redis_ping_ok")
			defer rc.Close()
		}
	} else {
		l.Info("redis_disabled")
	}

	var sel store.SelectionStore
	var hist store.History
	switch cfg.StoreBackend {
	case "postgres":
		db, err := utils.OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		l.Info("db_open_ok")
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		pg := store.AttachDB(db)
		sel, hist = pg, pg
	case "redis":
		sel = store.NewRedis(rc, "")
	default:
		sel = store.NewFile(cfg.SelectionFile())
	}

	var fetcher dataset.Fetcher
	if cfg.PackageBaseURL != "" {
		fetcher = dataset.NewHTTPFetcher(cfg.PackageBaseURL, cfg.DownloadTimeout)
		l.Info("package_source", "kind", "http", "base", cfg.PackageBaseURL)
	} else {
		fetcher = &dataset.DirFetcher{Dir: cfg.PackageDir}
		l.Info("package_source", "kind", "dir", "dir", cfg.PackageDir)
	}

	holder := elevation.NewHolder(l)
	syncer := dataset.New(dataset.Options{
		Catalog:       catalog,
		Fetcher:       fetcher,
		TilesDir:      cfg.TilesDir(),
		PackagesDir:   cfg.PackagesDir(),
		KeepPackages:  cfg.KeepPackages,
		Index:         holder,
		Store:         sel,
		History:       hist,
		DefaultRegion: cfg.DefaultRegion,
		Logger:        l,
	})
	defer syncer.Close()
	if err := syncer.Resume(ctx); err != nil {
		l.Error("dataset_resume_error", "err", err)
	}

	var cache tile.Cache
	if cfg.CacheBackend == "redis" && rc != nil {
		cache = tile.NewRedisCache(rc, cfg.CacheTTL)
	} else {
		cache = tile.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)
	}
	resolver := tile.NewResolver(holder, syncer, tile.NewFileSource(cfg.TilesDir()), tile.Options{
		MinZoom:       maptile.Zoom(cfg.MinZoom),
		MaxNativeZoom: maptile.Zoom(cfg.MaxNativeZoom),
		Cache:         cache,
		Logger:        l,
	})

	var locator *geolocate.Locator
	if cfg.GeoIPPath != "" {
		if locator, err = geolocate.Open(cfg.GeoIPPath, catalog); err != nil {
			l.Error("geoip_open_error", "path", cfg.GeoIPPath, "err", err)
			locator = nil
		} else {
			l.Info("geoip_ready", "path", cfg.GeoIPPath)
			defer locator.Close()
		}
	}

	apiMux := api.BuildRoutes(api.Deps{
		Sync:       syncer,
		Resolver:   resolver,
		Locator:    locator,
		History:    hist,
		AdminToken: cfg.AdminToken,
		AdminAllow: middleware.NewAllowList(cfg.AdminAllow, cfg.RealIPHeader, l),
		Logger:     l,
	})
	mux := http.NewServeMux()
	mux.Handle(cfg.APIBase+"/", http.StripPrefix(cfg.APIBase, apiMux))
	mux.Handle(cfg.APIBase+"/metrics", metrics.Handler())
	mux.Handle("/", http.FileServer(http.Dir(cfg.UIDir)))

	// NOTE: 向前端暴露 API 基础路径与缩放范围，避免硬编码
	mux.HandleFunc("/config.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/javascript; charset=utf-8")
		w.Header().Set("cache-control", "no-store")
		fmt.Fprintf(w, "window.__API_BASE__='%s'\n", cfg.APIBase)
		fmt.Fprintf(w, "window.__MIN_ZOOM__=%d\n", resolver.MinZoom())
		fmt.Fprintf(w, "window.__MAX_NATIVE_ZOOM__=%d\n", resolver.MaxNativeZoom())
		fmt.Fprintf(w, "window.__COMMIT_SHA__='%s'\n", version.Commit)
	})

	handler := logger.AccessMiddleware(l)(mux)
	if cfg.RateLimitEnabled {
		handler = middleware.RateLimit(cfg.RateLimitQPS)(handler)
	}
	s := &http.Server{Addr: cfg.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go shutdownOnDone(ctx, s, l)

	if cfg.TLSEnable {
		if err := utils.EnsureSelfSignedCert(cfg.TLSCertPath, cfg.TLSKeyPath, "sealevel.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", cfg.Addr, "cert", cfg.TLSCertPath)
		err = s.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
	} else {
		l.Info("listening", "addr", cfg.Addr)
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}

func shutdownOnDone(ctx context.Context, s *http.Server, l *slog.Logger) {
	<-ctx.Done()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(sctx); err != nil {
		l.Error("server_shutdown_error", "err", err)
	}
}
