// cache.go — LRU-кэш типов записей (папка или нет) с TTL.
// Тип записи неизменяем, а записи не удаляются, поэтому кэш
// не требует инвалидации.
package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/files-manager/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "files_manager_kind_cache_hits_total",
		Help: "Общее количество попаданий в кэш типов записей.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "files_manager_kind_cache_misses_total",
		Help: "Общее количество промахов кэша типов записей.",
	})
)

// KindCache — кэш id → kind.
type KindCache struct {
	cache *expirable.LRU[uuid.UUID, model.Kind]
}

// NewKindCache создаёт кэш с указанным размером и TTL.
func NewKindCache(maxSize int, ttl time.Duration) *KindCache {
	return &KindCache{cache: expirable.NewLRU[uuid.UUID, model.Kind](maxSize, nil, ttl)}
}

// Get возвращает тип записи при попадании.
func (c *KindCache) Get(id uuid.UUID) (model.Kind, bool) {
	if c == nil {
		return "", false
	}
	kind, ok := c.cache.Get(id)
	if ok {
		cacheHitsTotal.Inc()
		return kind, true
	}
	cacheMissesTotal.Inc()
	return "", false
}

// Set запоминает тип записи.
func (c *KindCache) Set(id uuid.UUID, kind model.Kind) {
	if c == nil {
		return
	}
	c.cache.Add(id, kind)
}
