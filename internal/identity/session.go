package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionGetter — часть redis.Cmdable, нужная SessionResolver.
type SessionGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// SessionResolver ищет пользователя по сессионному токену в Redis:
// ключ {prefix}{token}, значение — userId.
type SessionResolver struct {
	store   SessionGetter
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewSessionResolver создаёт резолвер сессий.
func NewSessionResolver(store SessionGetter, prefix string, timeout time.Duration, logger *slog.Logger) *SessionResolver {
	return &SessionResolver{
		store:   store,
		prefix:  prefix,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "session_resolver")),
	}
}

// Resolve реализует Resolver.
func (s *SessionResolver) Resolve(ctx context.Context, creds Credentials) (string, bool) {
	if creds.Token == "" {
		return "", false
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	userID, err := s.store.Get(ctx, s.prefix+creds.Token).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Хранилище сессий недоступно",
				slog.String("error", err.Error()),
			)
			sessionLookups.WithLabelValues("error").Inc()
			return "", false
		}
		sessionLookups.WithLabelValues("miss").Inc()
		return "", false
	}
	if userID == "" {
		sessionLookups.WithLabelValues("miss").Inc()
		return "", false
	}

	sessionLookups.WithLabelValues("hit").Inc()
	return userID, true
}
