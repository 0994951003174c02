// files.go — HTTP handlers файлового дерева.
// Upload, Get, List, Publish/Unpublish, Data.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/files-manager/internal/api/errors"
	"github.com/bigkaa/files-manager/internal/api/openapi"
	"github.com/bigkaa/files-manager/internal/domain/model"
	"github.com/bigkaa/files-manager/internal/identity"
	"github.com/bigkaa/files-manager/internal/service"
)

// FileOperations — операции файлового дерева (реализует service.FileService).
type FileOperations interface {
	Upload(ctx context.Context, requester string, req service.UploadRequest) (*model.FileRecord, error)
	Get(ctx context.Context, requester, rawID string) (*model.FileRecord, error)
	List(ctx context.Context, requester, parentRaw, pageRaw string) ([]*model.FileRecord, error)
	SetVisibility(ctx context.Context, requester, rawID string, public bool) (*model.FileRecord, error)
	GetContent(ctx context.Context, requester, rawID, size string) (*service.Content, error)
}

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	svc            FileOperations
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
// maxUploadBytes ограничивает размер тела POST /api/v1/files.
func NewFilesHandler(svc FileOperations, maxUploadBytes int64, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		svc:            svc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "files_handler")),
	}
}

// UploadFile обрабатывает POST /api/v1/files.
// Без идентичности ответ всегда 401, каким бы ни было тело: оно разбирается
// только ради kind для диагностического события.
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	requester, ok := identity.UserFromContext(r.Context())

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	var body openapi.UploadFileJSONBody
	decodeErr := json.NewDecoder(r.Body).Decode(&body)

	if !ok {
		if decodeErr != nil {
			body = openapi.UploadFileJSONBody{}
		}
		if _, err := h.svc.Upload(r.Context(), "", uploadRequest(body)); err != nil {
			h.writeServiceError(w, err)
			return
		}
		apierrors.Unauthorized(w)
		return
	}

	if decodeErr != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(decodeErr, &tooLarge) {
			apierrors.ValidationError(w, apierrors.MsgPayloadTooLarge)
			return
		}
		apierrors.ValidationError(w, apierrors.MsgInvalidBody)
		return
	}

	rec, err := h.svc.Upload(r.Context(), requester, uploadRequest(body))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec.View())
}

// GetFile обрабатывает GET /api/v1/files/{id}.
func (h *FilesHandler) GetFile(w http.ResponseWriter, r *http.Request, id openapi.FileId) {
	requester, _ := identity.UserFromContext(r.Context())

	rec, err := h.svc.Get(r.Context(), requester, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec.View())
}

// ListFiles обрабатывает GET /api/v1/files?parentId=&page=.
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request, params openapi.ListFilesParams) {
	requester, _ := identity.UserFromContext(r.Context())

	recs, err := h.svc.List(r.Context(), requester, deref(params.ParentId), deref(params.Page))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	views := make([]model.FileView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, rec.View())
	}
	writeJSON(w, http.StatusOK, views)
}

// SetVisibility обрабатывает PUT /api/v1/files/{id}/publish и /unpublish.
func (h *FilesHandler) SetVisibility(w http.ResponseWriter, r *http.Request, id openapi.FileId, public bool) {
	requester, _ := identity.UserFromContext(r.Context())

	rec, err := h.svc.SetVisibility(r.Context(), requester, id, public)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec.View())
}

// GetFileData обрабатывает GET /api/v1/files/{id}/data?size=.
func (h *FilesHandler) GetFileData(w http.ResponseWriter, r *http.Request, id openapi.FileId, params openapi.GetFileDataParams) {
	requester, _ := identity.UserFromContext(r.Context())

	content, err := h.svc.GetContent(r.Context(), requester, id, deref(params.Size))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", content.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content.Data)
}

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
func (h *FilesHandler) writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var blobErr *service.BlobError

	switch {
	case errors.As(err, &validationErr):
		apierrors.ValidationError(w, validationErr.Message)
	case errors.As(err, &blobErr):
		apierrors.ValidationError(w, blobErr.Message)
	case errors.Is(err, service.ErrUnauthorized):
		apierrors.Unauthorized(w)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w)
	case errors.Is(err, service.ErrFolderNoContent):
		apierrors.ValidationError(w, apierrors.MsgFolderNoContent)
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.InternalError(w, apierrors.MsgInternal)
	}
}

// uploadRequest переводит тело запроса в UploadRequest.
// type — синоним kind; kind приоритетнее.
func uploadRequest(body openapi.UploadFileJSONBody) service.UploadRequest {
	kind := rawString(body.Kind)
	if kind == "" {
		kind = rawString(body.Type)
	}

	return service.UploadRequest{
		Name:     rawString(body.Name),
		Kind:     kind,
		Data:     rawString(body.Data),
		Parent:   parentString(body.ParentId),
		IsPublic: rawBool(body.IsPublic),
	}
}

// rawString возвращает JSON-строку; любое другое значение считается отсутствующим.
func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// rawBool — true только для литерала true.
func rawBool(raw json.RawMessage) bool {
	var b bool
	return len(raw) > 0 && json.Unmarshal(raw, &b) == nil && b
}

// parentString приводит сырой parentId к строке для валидатора.
// Отсутствие и null — корень, строка — как есть, число 0 — "0".
// Прочие значения передаются литералом и не найдутся как папка.
func parentString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	if n, err := strconv.ParseFloat(string(raw), 64); err == nil && n == 0 {
		return "0"
	}
	return string(raw)
}
