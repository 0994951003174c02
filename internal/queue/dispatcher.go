// Пакет queue — асинхронная постановка задач обработки в Redis.
//
// Dispatcher принимает задачи без блокировки вызывающего: задача кладётся
// в ограниченный буфер, фоновые воркеры переносят её в Redis-список
// (LPUSH JSON). Переполнение буфера и ошибки Redis логируются и считаются,
// но не возвращаются вызывающему.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Prometheus метрики очереди
var (
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "files_manager_jobs_total",
			Help: "Задачи обработки по результату постановки",
		},
		[]string{"result"}, // queued, dropped, failed
	)

	jobsBuffered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "files_manager_jobs_buffered",
		Help: "Задачи в буфере, ожидающие отправки в Redis",
	})
)

// Job — задача построения производных ресурсов (миниатюр) изображения.
type Job struct {
	FileID string `json:"fileId"`
	UserID string `json:"userId"`
}

// Pusher — часть redis.Cmdable, нужная Dispatcher.
type Pusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Options — параметры Dispatcher.
type Options struct {
	// Queue — имя Redis-списка
	Queue string
	// Buffer — ёмкость буфера
	Buffer int
	// Workers — количество воркеров
	Workers int
	// Timeout — таймаут одной отправки в Redis
	Timeout time.Duration
}

// Dispatcher — неблокирующий диспетчер задач.
type Dispatcher struct {
	pusher Pusher
	opts   Options
	logger *slog.Logger

	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.RWMutex // защищает closed и отправку в jobs
	started bool
	closed  bool
}

// NewDispatcher создаёт диспетчер. Воркеры запускаются методом Start.
func NewDispatcher(pusher Pusher, opts Options, logger *slog.Logger) *Dispatcher {
	if opts.Buffer < 1 {
		opts.Buffer = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Dispatcher{
		pusher: pusher,
		opts:   opts,
		logger: logger.With(slog.String("component", "dispatcher")),
		jobs:   make(chan Job, opts.Buffer),
	}
}

// Start запускает воркеры. Повторный вызов игнорируется.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for range d.opts.Workers {
		d.wg.Add(1)
		go d.worker()
	}

	d.logger.Info("Диспетчер задач запущен",
		slog.String("queue", d.opts.Queue),
		slog.Int("workers", d.opts.Workers),
		slog.Int("buffer", d.opts.Buffer),
	)
}

// Enqueue ставит задачу в буфер без блокировки.
// Возвращает false, если задача отброшена.
func (d *Dispatcher) Enqueue(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(job, "диспетчер остановлен")
		return false
	}

	select {
	case d.jobs <- job:
		jobsBuffered.Inc()
		return true
	default:
		d.drop(job, "буфер переполнен")
		return false
	}
}

// Stop прекращает приём задач и дожидается отправки буфера.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	started := d.started
	d.mu.Unlock()

	if !started {
		// Воркеры не запускались — буфер некому разбирать
		for job := range d.jobs {
			jobsBuffered.Dec()
			d.drop(job, "диспетчер не запущен")
		}
		return
	}

	d.wg.Wait()
	d.logger.Info("Диспетчер задач остановлен")
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		jobsBuffered.Dec()
		d.push(job)
	}
}

func (d *Dispatcher) push(job Job) {
	payload, err := json.Marshal(job)
	if err != nil {
		d.fail(job, err)
		return
	}

	ctx := context.Background()
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	if err := d.pusher.LPush(ctx, d.opts.Queue, payload).Err(); err != nil {
		d.fail(job, err)
		return
	}

	jobsTotal.WithLabelValues("queued").Inc()
	d.logger.Debug("Задача поставлена в очередь",
		slog.String("file_id", job.FileID),
		slog.String("queue", d.opts.Queue),
	)
}

func (d *Dispatcher) drop(job Job, reason string) {
	jobsTotal.WithLabelValues("dropped").Inc()
	d.logger.Warn("Задача отброшена",
		slog.String("file_id", job.FileID),
		slog.String("reason", reason),
	)
}

func (d *Dispatcher) fail(job Job, err error) {
	jobsTotal.WithLabelValues("failed").Inc()
	d.logger.Error("Ошибка постановки задачи в очередь",
		slog.String("file_id", job.FileID),
		slog.String("queue", d.opts.Queue),
		slog.String("error", err.Error()),
	)
}
