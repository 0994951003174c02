// validator.go — проверка запроса на создание записи.
// Порядок проверок фиксирован: имя, тип, данные, родитель.
// Клиенты опираются на то, какая ошибка возвращается первой.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/files-manager/internal/domain/model"
	"github.com/bigkaa/files-manager/internal/repository"
)

// UploadRequest — запрос на создание записи в сыром виде.
type UploadRequest struct {
	Name string
	// Kind — folder, file или image (в теле запроса — kind или type)
	Kind string
	// Data — содержимое в base64; для папок игнорируется
	Data string
	// Parent — parentId в текстовом виде: "", "0" или UUID
	Parent   string
	IsPublic bool
}

// UploadParams — проверенные параметры создания записи.
type UploadParams struct {
	Name     string
	Kind     model.Kind
	Parent   model.ParentRef
	IsPublic bool
	// Content — декодированное содержимое (nil для папок)
	Content []byte
}

// KindLookup возвращает тип существующей записи.
// Отсутствующая запись — repository.ErrNotFound.
type KindLookup interface {
	LookupKind(ctx context.Context, id uuid.UUID) (model.Kind, error)
}

// ValidateUpload проверяет запрос и декодирует содержимое.
// Ошибки валидации удовлетворяют errors.Is(err, ErrValidation).
func ValidateUpload(ctx context.Context, req UploadRequest, kinds KindLookup) (*UploadParams, error) {
	if req.Name == "" {
		return nil, validationError(MsgMissingName)
	}

	kind := model.Kind(req.Kind)
	if !kind.Valid() {
		return nil, validationError(MsgMissingType)
	}

	if req.Data == "" && kind != model.KindFolder {
		return nil, validationError(MsgMissingData)
	}

	parent, err := model.ParseParentRef(req.Parent)
	if err != nil {
		return nil, validationError(MsgParentNotFound)
	}
	if folderID, ok := parent.FolderID(); ok {
		parentKind, err := kinds.LookupKind(ctx, folderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, validationError(MsgParentNotFound)
			}
			return nil, fmt.Errorf("проверка родительской папки: %w", err)
		}
		if parentKind != model.KindFolder {
			return nil, validationError(MsgParentNotAFolder)
		}
	}

	params := &UploadParams{
		Name:     req.Name,
		Kind:     kind,
		Parent:   parent,
		IsPublic: req.IsPublic,
	}
	if kind == model.KindFolder {
		return params, nil
	}

	content, err := decodeBase64(req.Data)
	if err != nil {
		return nil, validationError(MsgInvalidData)
	}
	params.Content = content
	return params, nil
}

// decodeBase64 принимает стандартный алфавит с паддингом и без него.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
