package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// EventIdentityProbe — попытка загрузки изображения без идентичности.
const EventIdentityProbe = "identity_probe"

// publishTimeout ограничивает публикацию: событие отправляется на пути запроса.
const publishTimeout = 500 * time.Millisecond

var diagnosticEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "files_manager_diagnostic_events_total",
		Help: "Диагностические события по имени",
	},
	[]string{"event"},
)

// Publisher — часть redis.Cmdable, нужная Diagnostics.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Event — диагностическое событие в канале Redis.
type Event struct {
	Event string    `json:"event"`
	Kind  string    `json:"kind,omitempty"`
	At    time.Time `json:"at"`
}

// Diagnostics публикует диагностические события. Не связан с очередью задач.
type Diagnostics struct {
	pub     Publisher
	channel string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewDiagnostics создаёт издателя диагностических событий.
// pub может быть nil: события тогда только логируются и считаются.
func NewDiagnostics(pub Publisher, channel string, logger *slog.Logger) *Diagnostics {
	return &Diagnostics{
		pub:     pub,
		channel: channel,
		timeout: publishTimeout,
		logger:  logger.With(slog.String("component", "diagnostics")),
		now:     time.Now,
	}
}

// EmitIdentityProbe фиксирует неудачное определение пользователя
// при попытке загрузки ресурса типа kind.
func (d *Diagnostics) EmitIdentityProbe(ctx context.Context, kind string) {
	diagnosticEvents.WithLabelValues(EventIdentityProbe).Inc()
	d.logger.Info("Загрузка без идентичности",
		slog.String("event", EventIdentityProbe),
		slog.String("kind", kind),
	)

	if d.pub == nil {
		return
	}
	payload, err := json.Marshal(Event{Event: EventIdentityProbe, Kind: kind, At: d.now().UTC()})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.pub.Publish(ctx, d.channel, payload).Err(); err != nil {
		d.logger.Warn("Ошибка публикации диагностического события",
			slog.String("channel", d.channel),
			slog.String("error", err.Error()),
		)
	}
}
