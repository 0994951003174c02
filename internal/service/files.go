// files.go — операции над файловым деревом: создание, чтение,
// список, смена видимости и выдача содержимого.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/files-manager/internal/domain/model"
	"github.com/bigkaa/files-manager/internal/queue"
	"github.com/bigkaa/files-manager/internal/repository"
	"github.com/bigkaa/files-manager/internal/storage/blobstore"
)

var uploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "files_manager_uploads_total",
		Help: "Запросы на создание записей по типу и результату",
	},
	[]string{"kind", "result"}, // result: created, unauthorized, invalid, error
)

// BlobStore — операции с блобами, нужные FileService.
type BlobStore interface {
	Write(data []byte) (string, error)
	Read(path, size string) ([]byte, error)
	Delete(path string) error
}

// JobQueue — неблокирующая постановка задач обработки.
type JobQueue interface {
	Enqueue(job queue.Job) bool
}

// ProbeEmitter — диагностика неудачного определения пользователя.
type ProbeEmitter interface {
	EmitIdentityProbe(ctx context.Context, kind string)
}

// Content — содержимое записи для выдачи клиенту.
type Content struct {
	ContentType string
	Data        []byte
}

// FileService — бизнес-логика файлового дерева.
type FileService struct {
	files        repository.FileRepository
	users        repository.UserRepository
	blobs        BlobStore
	jobs         JobQueue
	probes       ProbeEmitter
	kinds        *KindCache
	variantSizes []string
	logger       *slog.Logger
}

// NewFileService создаёт FileService.
// variantSizes — допустимые значения параметра size при чтении содержимого.
func NewFileService(
	files repository.FileRepository,
	users repository.UserRepository,
	blobs BlobStore,
	jobs JobQueue,
	probes ProbeEmitter,
	kinds *KindCache,
	variantSizes []string,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		files:        files,
		users:        users,
		blobs:        blobs,
		jobs:         jobs,
		probes:       probes,
		kinds:        kinds,
		variantSizes: variantSizes,
		logger:       logger.With(slog.String("component", "file_service")),
	}
}

// LookupKind реализует KindLookup: сначала кэш, затем хранилище.
func (s *FileService) LookupKind(ctx context.Context, id uuid.UUID) (model.Kind, error) {
	if kind, ok := s.kinds.Get(id); ok {
		return kind, nil
	}
	rec, err := s.files.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	s.kinds.Set(rec.ID, rec.Kind)
	return rec.Kind, nil
}

// Upload создаёт запись от имени requester.
//
// Порядок: идентичность → пользователь → валидация → блоб → запись → задача.
// Блоб пишется строго до записи метаданных.
func (s *FileService) Upload(ctx context.Context, requester string, req UploadRequest) (*model.FileRecord, error) {
	if requester == "" {
		if model.Kind(req.Kind) == model.KindImage && s.probes != nil {
			s.probes.EmitIdentityProbe(ctx, req.Kind)
		}
		uploadsTotal.WithLabelValues(kindLabel(req.Kind), "unauthorized").Inc()
		return nil, ErrUnauthorized
	}

	exists, err := s.users.Exists(ctx, requester)
	if err != nil {
		uploadsTotal.WithLabelValues(kindLabel(req.Kind), "error").Inc()
		return nil, fmt.Errorf("поиск пользователя: %w", err)
	}
	if !exists {
		uploadsTotal.WithLabelValues(kindLabel(req.Kind), "unauthorized").Inc()
		return nil, ErrUnauthorized
	}

	params, err := ValidateUpload(ctx, req, s)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrValidation) {
			result = "invalid"
		}
		uploadsTotal.WithLabelValues(kindLabel(req.Kind), result).Inc()
		return nil, err
	}

	rec := &model.FileRecord{
		OwnerID:  requester,
		Name:     params.Name,
		Kind:     params.Kind,
		IsPublic: params.IsPublic,
		Parent:   params.Parent,
	}

	if params.Kind.HasBlob() {
		path, err := s.blobs.Write(params.Content)
		if err != nil {
			uploadsTotal.WithLabelValues(string(params.Kind), "invalid").Inc()
			s.logger.Warn("Ошибка записи блоба", slog.String("error", err.Error()))
			return nil, &BlobError{Message: blobstore.SafeMessage(err), Err: err}
		}
		rec.LocalPath = path
	}

	if _, err := s.files.Insert(ctx, rec); err != nil {
		uploadsTotal.WithLabelValues(string(params.Kind), "error").Inc()
		if rec.LocalPath != "" {
			if delErr := s.blobs.Delete(rec.LocalPath); delErr != nil {
				s.logger.Warn("Блоб без записи оставлен для GC",
					slog.String("error", delErr.Error()),
				)
			}
		}
		return nil, fmt.Errorf("сохранение записи: %w", err)
	}
	s.kinds.Set(rec.ID, rec.Kind)

	if rec.Kind == model.KindImage && s.jobs != nil {
		s.jobs.Enqueue(queue.Job{FileID: rec.ID.String(), UserID: requester})
	}

	uploadsTotal.WithLabelValues(string(rec.Kind), "created").Inc()
	s.logger.Info("Запись создана",
		slog.String("file_id", rec.ID.String()),
		slog.String("kind", string(rec.Kind)),
		slog.String("owner_id", requester),
	)
	return rec, nil
}

// Get возвращает запись, если requester может её читать.
// Некорректный id, отсутствие записи и отказ в доступе неразличимы: ErrNotFound.
func (s *FileService) Get(ctx context.Context, requester, rawID string) (*model.FileRecord, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrNotFound
	}

	rec, err := s.files.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение записи: %w", err)
	}
	if !CanRead(rec, requester) {
		return nil, ErrNotFound
	}
	return rec, nil
}

// List возвращает страницу детей папки parentRaw, видимых requester.
// Некорректная страница трактуется как 0. Некорректный id родителя — ErrUnauthorized.
// Отсутствующий родитель или родитель-не-папка дают пустой список.
func (s *FileService) List(ctx context.Context, requester, parentRaw, pageRaw string) ([]*model.FileRecord, error) {
	parent, err := model.ParseParentRef(parentRaw)
	if err != nil {
		return nil, ErrUnauthorized
	}

	if folderID, ok := parent.FolderID(); ok {
		kind, err := s.LookupKind(ctx, folderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return []*model.FileRecord{}, nil
			}
			return nil, fmt.Errorf("проверка папки: %w", err)
		}
		if kind != model.KindFolder {
			return []*model.FileRecord{}, nil
		}
	}

	recs, err := s.files.ListByParent(ctx, parent, requester, parsePage(pageRaw))
	if err != nil {
		return nil, fmt.Errorf("список записей: %w", err)
	}
	return recs, nil
}

// SetVisibility меняет признак публичности записи владельца.
func (s *FileService) SetVisibility(ctx context.Context, requester, rawID string, public bool) (*model.FileRecord, error) {
	if requester == "" {
		return nil, ErrUnauthorized
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrNotFound
	}

	rec, err := s.files.UpdateVisibility(ctx, id, requester, public)
	if err == nil {
		s.logger.Info("Видимость изменена",
			slog.String("file_id", rec.ID.String()),
			slog.Bool("is_public", rec.IsPublic),
		)
		return rec, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("смена видимости: %w", err)
	}

	// Запись не обновлена: отсутствует или принадлежит другому пользователю
	if _, err := s.files.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение записи: %w", err)
	}
	return nil, ErrUnauthorized
}

// GetContent возвращает содержимое записи или её варианта size.
func (s *FileService) GetContent(ctx context.Context, requester, rawID, size string) (*Content, error) {
	rec, err := s.Get(ctx, requester, rawID)
	if err != nil {
		return nil, err
	}
	if rec.Kind == model.KindFolder {
		return nil, ErrFolderNoContent
	}
	if size != "" && !slices.Contains(s.variantSizes, size) {
		return nil, ErrNotFound
	}

	data, err := s.blobs.Read(rec.LocalPath, size)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("чтение блоба: %w", err)
	}

	return &Content{ContentType: ContentTypeFor(rec.Name), Data: data}, nil
}

// ContentTypeFor определяет Content-Type по расширению имени.
func ContentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// parsePage разбирает номер страницы; всё некорректное — 0.
func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return 0
	}
	return page
}

// kindLabel ограничивает кардинальность метки kind.
func kindLabel(kind string) string {
	if model.Kind(kind).Valid() {
		return kind
	}
	return "unknown"
}
