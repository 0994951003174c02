package service

import (
	"github.com/bigkaa/files-manager/internal/domain/model"
)

// CanRead сообщает, может ли requester читать запись.
// Публичные записи доступны всем, приватные — только владельцу.
// Отказ вызывающие превращают в ErrNotFound, а не в запрет.
func CanRead(rec *model.FileRecord, requester string) bool {
	if rec == nil {
		return false
	}
	return rec.IsPublic || (requester != "" && requester == rec.OwnerID)
}
