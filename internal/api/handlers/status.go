// status.go — системные endpoints /api/v1/status и /api/v1/stats.
package handlers

import (
	"context"
	"net/http"

	"github.com/bigkaa/files-manager/internal/service"
)

// StatusReporter — источник данных системных endpoints.
type StatusReporter interface {
	Status(ctx context.Context) service.StoreStatus
	Stats(ctx context.Context) service.Stats
}

// StatusHandler — обработчик системных endpoints.
type StatusHandler struct {
	svc StatusReporter
}

// NewStatusHandler создаёт обработчик системных endpoints.
func NewStatusHandler(svc StatusReporter) *StatusHandler {
	return &StatusHandler{svc: svc}
}

// GetStatus обрабатывает GET /api/v1/status. Всегда 200.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status(r.Context()))
}

// GetStats обрабатывает GET /api/v1/stats. Сбой хранилища даёт 0, а не ошибку.
func (h *StatusHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats(r.Context()))
}
