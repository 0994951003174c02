// status.go — сводка состояния хранилищ и счётчики для
// служебных endpoint'ов /status и /stats.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/files-manager/internal/repository"
)

// Pinger — проверка доступности хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger адаптирует клиент Redis к Pinger.
type RedisPinger struct {
	Client redis.Cmdable
}

// Ping реализует Pinger.
func (p RedisPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

// StoreStatus — доступность хранилищ.
type StoreStatus struct {
	Redis bool `json:"redis"`
	DB    bool `json:"db"`
}

// Stats — количество пользователей и записей.
type Stats struct {
	Users int64 `json:"users"`
	Files int64 `json:"files"`
}

// StatusService собирает состояние хранилищ и счётчики.
type StatusService struct {
	redis   Pinger
	db      Pinger
	users   repository.UserRepository
	files   repository.FileRepository
	timeout time.Duration
	logger  *slog.Logger
}

// NewStatusService создаёт StatusService.
func NewStatusService(
	redisPinger Pinger,
	dbPinger Pinger,
	users repository.UserRepository,
	files repository.FileRepository,
	logger *slog.Logger,
) *StatusService {
	return &StatusService{
		redis:   redisPinger,
		db:      dbPinger,
		users:   users,
		files:   files,
		timeout: 2 * time.Second,
		logger:  logger.With(slog.String("component", "status")),
	}
}

// Status проверяет доступность Redis и PostgreSQL.
func (s *StatusService) Status(ctx context.Context) StoreStatus {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return StoreStatus{
		Redis: s.redis != nil && s.redis.Ping(ctx) == nil,
		DB:    s.db != nil && s.db.Ping(ctx) == nil,
	}
}

// Stats возвращает счётчики. Сбой хранилища даёт 0 вместо ошибки.
func (s *StatusService) Stats(ctx context.Context) Stats {
	var st Stats

	users, err := s.users.Count(ctx)
	if err != nil {
		s.logger.Warn("Не удалось посчитать пользователей", slog.String("error", err.Error()))
	} else {
		st.Users = users
	}

	files, err := s.files.Count(ctx)
	if err != nil {
		s.logger.Warn("Не удалось посчитать записи", slog.String("error", err.Error()))
	} else {
		st.Files = files
	}

	return st
}
