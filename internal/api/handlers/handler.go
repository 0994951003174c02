// handler.go — основной обработчик API, реализующий openapi.ServerInterface.
// Объединяет health, системные и файловые обработчики.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/files-manager/internal/api/errors"
	"github.com/bigkaa/files-manager/internal/api/openapi"
)

// APIHandler — основной обработчик API Files Manager.
type APIHandler struct {
	health *HealthHandler
	status *StatusHandler
	files  *FilesHandler
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	status *StatusHandler,
	files *FilesHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health: health,
		status: status,
		files:  files,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

var _ openapi.ServerInterface = (*APIHandler)(nil)

// --- Health endpoints ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Системные endpoints ---

// GetOpenAPISpec отдаёт OpenAPI документ в JSON.
func (h *APIHandler) GetOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	data, err := openapi.SpecJSON()
	if err != nil {
		h.logger.Error("OpenAPI документ недоступен", slog.String("error", err.Error()))
		apierrors.InternalError(w, apierrors.MsgInternal)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GetStatus — доступность Redis и PostgreSQL.
func (h *APIHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.status.GetStatus(w, r)
}

// GetStats — количество пользователей и записей.
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	h.status.GetStats(w, r)
}

// --- Файловые endpoints ---

// UploadFile — создание записи.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	h.files.UploadFile(w, r)
}

// ListFiles — страница детей папки.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request, params openapi.ListFilesParams) {
	h.files.ListFiles(w, r, params)
}

// GetFile — запись по идентификатору.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request, id openapi.FileId) {
	h.files.GetFile(w, r, id)
}

// PublishFile — сделать запись публичной.
func (h *APIHandler) PublishFile(w http.ResponseWriter, r *http.Request, id openapi.FileId) {
	h.files.SetVisibility(w, r, id, true)
}

// UnpublishFile — сделать запись приватной.
func (h *APIHandler) UnpublishFile(w http.ResponseWriter, r *http.Request, id openapi.FileId) {
	h.files.SetVisibility(w, r, id, false)
}

// GetFileData — содержимое записи.
func (h *APIHandler) GetFileData(w http.ResponseWriter, r *http.Request, id openapi.FileId, params openapi.GetFileDataParams) {
	h.files.GetFileData(w, r, id, params)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// deref возвращает значение указателя или пустую строку.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
