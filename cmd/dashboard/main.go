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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xela07ax/cintia-dashboard/internal/audit"
	"github.com/xela07ax/cintia-dashboard/internal/cache"
	"github.com/xela07ax/cintia-dashboard/internal/charts"
	"github.com/xela07ax/cintia-dashboard/internal/console/handler"
	"github.com/xela07ax/cintia-dashboard/internal/console/server"
	"github.com/xela07ax/cintia-dashboard/internal/console/service"
	"github.com/xela07ax/cintia-dashboard/internal/dataset"
	"github.com/xela07ax/cintia-dashboard/internal/domain"
	"github.com/xela07ax/cintia-dashboard/internal/infra"
	"github.com/xela07ax/cintia-dashboard/internal/infra/auth"
	"github.com/xela07ax/cintia-dashboard/internal/metrics"
	"github.com/xela07ax/cintia-dashboard/internal/repository/postgres"
)

func main() {
	configFile := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// .env необязателен: в контейнере все приходит через окружение
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to read .env: %v", err)
	}

	cfg, err := infra.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	// 2. Postgres нужен источнику postgres и журналу просмотров
	var pool *pgxpool.Pool
	if cfg.Database.URL != "" {
		pool, err = postgres.NewPool(appCtx, cfg.Database)
		if err != nil {
			logger.Fatal("database unreachable", zap.Error(err))
		}
		defer pool.Close()

		if err := postgres.Migrate(appCtx, pool, cfg.Database.RecordTable); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
	}

	// 3. Источник данных и хранилище снапшота
	source := buildSource(cfg, pool, m, logger)
	store := dataset.NewStore(source, logger)

	// 4. Кэш представлений (L2 в Redis, если включен)
	var viewCache cache.ViewCache = cache.NopCache{}
	var redisCache *cache.RedisCache
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(appCtx).Err(); err != nil {
			logger.Fatal("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		redisCache = cache.NewRedisCache(rdb, cfg.Redis.CacheTTL, logger)
		viewCache = redisCache
	}

	// 5. Журнал просмотров: в Postgres пачками или в лог
	var auditor audit.Auditor = audit.NopAuditor{}
	var journal *audit.Journal
	if cfg.Audit.Enabled {
		var storage audit.Storage = audit.NewLogStore(logger)
		if pool != nil {
			storage = postgres.NewViewRepo(pool)
		}
		journal = audit.NewJournal(storage, cfg.Audit, logger)
		journal.OnBufferFill(func(n int) { m.AuditBufferFill.Set(float64(n)) })
		journal.Start()
		auditor = journal
	}

	// 6. Сервис дашборда
	renderer := charts.NewRenderer(cfg.Charts.Width, cfg.Charts.Height)
	dashService := service.NewDashboardService(store, renderer, viewCache, auditor, m, cfg.Charts.Bins, logger)

	store.OnSwap(func(snap *domain.Snapshot) {
		m.DatasetRecords.Set(float64(snap.Len()))
		m.DatasetReloads.WithLabelValues("success").Inc()

		if redisCache != nil {
			// Прогреваем представление без фильтров: его открывают первым
			go func() {
				if err := redisCache.Warmup(appCtx, snap.Version, func() domain.DashboardView {
					return dashService.BuildDefaultView(snap)
				}); err != nil {
					logger.Warn("view cache warmup failed", zap.String("version", snap.Version), zap.Error(err))
				}
			}()
		}
	})
	store.OnFailure(func(error) {
		m.DatasetReloads.WithLabelValues("failure").Inc()
		m.ErrorTotal.WithLabelValues("dataset_load").Inc()
	})

	// Без данных стартовать бессмысленно (fail fast)
	if _, err := store.Reload(appCtx); err != nil {
		logger.Fatal("initial dataset load failed", zap.String("source", source.Name()), zap.Error(err))
	}
	go store.StartAutoReload(appCtx, cfg.Source.ReloadInterval)

	// 7. Синхронизация перезагрузок между инстансами
	if rdb != nil {
		instanceID := uuid.New().String()
		dashService.SetNotifier(cache.NewReloadNotifier(rdb, instanceID))

		// Первое подключение тоже вызывает Resync: сигнал мог прийти между загрузкой и подпиской
		go cache.ListenReloadResilient(appCtx, rdb, logger, instanceID,
			func() error { return dashService.Resync(appCtx) },
			func(version string) {
				if err := dashService.ApplyReloadSignal(appCtx, version); err != nil {
					logger.Error("reload by signal failed", zap.String("version", version), zap.Error(err))
				}
			})
	}

	// 8. Авторизация для перезагрузки данных
	var validator auth.TokenValidator
	var authHandler *handler.AuthHandler
	if cfg.Auth.Enabled {
		pubKey, privKey, err := auth.LoadKeyPair(cfg.Auth.PublicKey, cfg.Auth.PrivateKey)
		if err != nil {
			logger.Fatal("invalid auth keys", zap.Error(err))
		}
		users := service.NewConfigUsers(cfg.Auth.Users)
		validator = auth.NewVerifier(pubKey)
		authHandler = handler.NewAuthHandler(service.NewAuthService(users, privKey, cfg.Auth.TokenTTL))
	}

	// Экспортируем метрики для Prometheus
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	// 9. HTTP Server
	dashServer := server.NewDashboardServer(logger, m, validator, authHandler,
		handler.NewDashboardHandler(dashService, logger))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      dashServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("dashboard started", zap.String("addr", srv.Addr), zap.String("source", source.Name()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("dashboard stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	cancel()
	if journal != nil {
		journal.Stop() // дописываем буфер до закрытия пула
	}
	logger.Info("dashboard exited properly")
}

// buildSource выбирает источник по source.kind.
func buildSource(cfg *infra.Config, pool *pgxpool.Pool, m *metrics.Metrics, logger *zap.Logger) dataset.Source {
	switch cfg.Source.Kind {
	case infra.SourceURL:
		remote := dataset.NewRemoteSource(cfg.Source, &http.Client{Timeout: cfg.Source.Timeout}, logger)
		remote.OnBreakerState(func(name string, state gobreaker.State) {
			open := 0.0
			if state == gobreaker.StateOpen {
				open = 1
			}
			m.CircuitBreakerState.WithLabelValues(name).Set(open)
		})
		return remote
	case infra.SourcePostgres:
		return postgres.NewRecordRepo(pool, cfg.Database.RecordTable)
	default:
		return dataset.NewXLSXSource(cfg.Source.Path, cfg.Source.Sheet)
	}
}
