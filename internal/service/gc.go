// gc.go — очистка осиротевших блобов по расписанию cron.
//
// Блоб пишется раньше записи метаданных, поэтому сбой между этими шагами
// оставляет файл без записи. GC удаляет такие файлы (вместе с вариантами
// и незавершёнными .tmp), если они старше grace-периода.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"

	"github.com/bigkaa/files-manager/internal/storage/blobstore"
)

// Prometheus метрики GC
var (
	gcRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "files_manager_gc_runs_total",
		Help: "Общее количество запусков GC",
	})

	gcBlobsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "files_manager_gc_blobs_deleted_total",
		Help: "Общее количество блобов, удалённых GC",
	})

	gcDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "files_manager_gc_duration_seconds",
		Help:    "Длительность выполнения GC в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// BlobScanner — перечисление и удаление блобов.
type BlobScanner interface {
	Scan() ([]blobstore.BlobInfo, error)
	Delete(path string) error
}

// BlobReferences — проверка ссылки записи на блоб.
type BlobReferences interface {
	ExistsByLocalPath(ctx context.Context, path string) (bool, error)
}

// GCResult — результат одного запуска GC.
type GCResult struct {
	Scanned  int
	Deleted  int
	Errors   int
	Duration time.Duration
}

// GCService — периодическая очистка осиротевших блобов.
type GCService struct {
	blobs    BlobScanner
	refs     BlobReferences
	grace    time.Duration
	schedule string
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex // защита от параллельного запуска RunOnce
	cron *cron.Cron
}

// NewGCService создаёт сервис GC. schedule — выражение cron
// (поддерживаются дескрипторы вида "@every 1h").
func NewGCService(blobs BlobScanner, refs BlobReferences, grace time.Duration, schedule string, logger *slog.Logger) *GCService {
	return &GCService{
		blobs:    blobs,
		refs:     refs,
		grace:    grace,
		schedule: schedule,
		logger:   logger.With(slog.String("component", "gc")),
		now:      time.Now,
	}
}

// Start регистрирует задачу в cron и запускает планировщик.
func (gc *GCService) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(gc.schedule, func() { gc.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("некорректное расписание GC %q: %w", gc.schedule, err)
	}
	gc.cron = c
	c.Start()

	gc.logger.Info("GC запущен", slog.String("schedule", gc.schedule))
	return nil
}

// Stop останавливает планировщик и дожидается текущего запуска.
func (gc *GCService) Stop() {
	if gc.cron == nil {
		return
	}
	<-gc.cron.Stop().Done()
	gc.logger.Info("GC остановлен")
}

// RunOnce выполняет один проход GC.
func (gc *GCService) RunOnce(ctx context.Context) *GCResult {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	start := time.Now()
	result := &GCResult{}

	blobs, err := gc.blobs.Scan()
	if err != nil {
		gc.logger.Error("GC: ошибка сканирования хранилища", slog.String("error", err.Error()))
		result.Errors++
		return result
	}

	cutoff := gc.now().Add(-gc.grace)
	referenced := make(map[string]bool)

	for _, b := range blobs {
		if ctx.Err() != nil {
			break
		}
		result.Scanned++
		if b.ModTime.After(cutoff) {
			continue
		}

		if !b.Temp {
			ok, seen := referenced[b.PrimaryPath]
			if !seen {
				exists, err := gc.refs.ExistsByLocalPath(ctx, b.PrimaryPath)
				if err != nil {
					gc.logger.Error("GC: ошибка проверки ссылки",
						slog.String("error", err.Error()),
					)
					result.Errors++
					continue
				}
				referenced[b.PrimaryPath] = exists
				ok = exists
			}
			if ok {
				continue
			}
		}

		if err := gc.blobs.Delete(b.Path); err != nil {
			gc.logger.Error("GC: ошибка удаления блоба",
				slog.String("path", b.Path),
				slog.String("error", err.Error()),
			)
			result.Errors++
			continue
		}
		gc.logger.Debug("GC: блоб удалён", slog.String("path", b.Path))
		result.Deleted++
	}

	result.Duration = time.Since(start)

	gcRunsTotal.Inc()
	gcBlobsDeletedTotal.Add(float64(result.Deleted))
	gcDurationSeconds.Observe(result.Duration.Seconds())

	gc.logger.Info("GC завершён",
		slog.Int("scanned", result.Scanned),
		slog.Int("deleted", result.Deleted),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", result.Duration),
	)
	return result
}
