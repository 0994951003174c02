// Точка входа Files Manager.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL и Redis,
// собирает сервисный слой и запускает HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/files-manager/internal/api/handlers"
	"github.com/bigkaa/files-manager/internal/api/middleware"
	"github.com/bigkaa/files-manager/internal/config"
	"github.com/bigkaa/files-manager/internal/database"
	"github.com/bigkaa/files-manager/internal/identity"
	"github.com/bigkaa/files-manager/internal/queue"
	"github.com/bigkaa/files-manager/internal/repository"
	"github.com/bigkaa/files-manager/internal/server"
	"github.com/bigkaa/files-manager/internal/service"
	"github.com/bigkaa/files-manager/internal/storage/blobstore"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("Files Manager запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 2. Миграции и PostgreSQL
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 3. Redis: сессии, очередь задач, диагностика
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		// Недоступный Redis не мешает старту: сессии не разрешаются, задачи отбрасываются
		logger.Warn("Redis недоступен при старте",
			slog.String("addr", cfg.RedisAddr),
			slog.String("error", err.Error()),
		)
	}

	// 4. Хранилище блобов
	blobs, err := blobstore.New(cfg.FolderPath)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища блобов",
			slog.String("error", blobstore.SafeMessage(err)),
		)
		os.Exit(1)
	}
	logger.Info("Хранилище блобов готово", slog.String("root", blobs.Root()))

	// 5. Репозитории
	fileRepo := repository.NewFileRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// 6. Идентичность: сессия Redis, затем JWT (если настроен)
	resolvers := identity.Chain{
		identity.NewSessionResolver(rdb, cfg.SessionKeyPrefix, cfg.SessionTimeout, logger),
	}
	if cfg.JWTJWKSURL != "" {
		jwtResolver, err := identity.NewJWTResolver(identity.JWTConfig{
			JWKSURL:         cfg.JWTJWKSURL,
			Issuer:          cfg.JWTIssuer,
			ClientTimeout:   cfg.JWKSClientTimeout,
			RefreshInterval: cfg.JWKSRefreshInterval,
			Leeway:          cfg.JWTLeeway,
		}, logger)
		if err != nil {
			logger.Error("Ошибка инициализации JWT", slog.String("error", err.Error()))
			os.Exit(1)
		}
		resolvers = append(resolvers, jwtResolver)
		logger.Info("JWT аутентификация включена",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	}

	// 7. Очередь задач и диагностика
	dispatcher := queue.NewDispatcher(rdb, queue.Options{
		Queue:   cfg.QueueName,
		Buffer:  cfg.DispatchBuffer,
		Workers: cfg.DispatchWorkers,
		Timeout: cfg.DispatchTimeout,
	}, logger)
	dispatcher.Start()

	diagnostics := queue.NewDiagnostics(rdb, cfg.DiagnosticChannel, logger)

	// 8. Сервисы
	kindCache := service.NewKindCache(cfg.FolderCacheSize, cfg.FolderCacheTTL)
	filesSvc := service.NewFileService(
		fileRepo, userRepo,
		blobs, dispatcher, diagnostics,
		kindCache, cfg.VariantSizes,
		logger,
	)
	redisPinger := service.RedisPinger{Client: rdb}
	statusSvc := service.NewStatusService(redisPinger, pool, userRepo, fileRepo, logger)

	// 9. Сборка мусора в хранилище блобов
	var gcSvc *service.GCService
	if cfg.GCSchedule != "" {
		gcSvc = service.NewGCService(blobs, fileRepo, cfg.GCGracePeriod, cfg.GCSchedule, logger)
		if err := gcSvc.Start(ctx); err != nil {
			logger.Error("Ошибка запуска GC", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		logger.Info("GC блобов отключён (FM_GC_SCHEDULE=off)")
	}

	// 10. topologymetrics — мониторинг зависимостей
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:     "files-manager",
		Group:         cfg.DephealthGroup,
		PgConnURL:     cfg.DatabaseURL(),
		JWKSURL:       cfg.JWTJWKSURL,
		CheckInterval: cfg.DephealthCheckInterval,
	}, pgDB, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 11. HTTP handlers
	healthHandler := handlers.NewHealthHandler(
		database.NewReadinessChecker(pool),
		database.NewPingChecker("Redis", redisPinger),
	)
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		handlers.NewStatusHandler(statusSvc),
		handlers.NewFilesHandler(filesSvc, cfg.MaxUploadBytes, logger),
		logger,
	)

	// 12. HTTP-сервер. Identity стоит раньше логгера, чтобы в лог попадал user_id.
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.Identity(resolvers),
		middleware.RequestLogger(logger),
	)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		shutdown(logger, dispatcher, gcSvc, dephealthSvc)
		os.Exit(1)
	}

	shutdown(logger, dispatcher, gcSvc, dephealthSvc)
	logger.Info("Files Manager остановлен")
}

// shutdown останавливает фоновые задачи. Диспетчер останавливается последним:
// он дожидается отправки задач, уже принятых в буфер.
func shutdown(logger *slog.Logger, dispatcher *queue.Dispatcher, gcSvc *service.GCService, dephealthSvc *service.DephealthService) {
	logger.Info("Останавливаем фоновые задачи...")

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	if gcSvc != nil {
		gcSvc.Stop()
	}
	dispatcher.Stop()
}
