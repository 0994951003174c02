// Пакет model — доменные модели Files Manager.
// FileRecord — маппинг таблицы files.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Kind — тип записи файлового дерева.
type Kind string

const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
	KindImage  Kind = "image"
)

// Valid проверяет, что тип входит в допустимое перечисление.
func (k Kind) Valid() bool {
	switch k {
	case KindFolder, KindFile, KindImage:
		return true
	}
	return false
}

// HasBlob сообщает, хранит ли запись данного типа содержимое на диске.
func (k Kind) HasBlob() bool {
	return k == KindFile || k == KindImage
}

// ErrInvalidParent — значение parentId не является ни корнем, ни UUID.
var ErrInvalidParent = errors.New("некорректный parentId")

// ParentRef — ссылка на родительскую папку: корень либо UUID папки.
// Нулевое значение — корень.
type ParentRef struct {
	folder uuid.UUID
	set    bool
}

// Root — ссылка на корень дерева.
func Root() ParentRef {
	return ParentRef{}
}

// Folder — ссылка на конкретную папку.
func Folder(id uuid.UUID) ParentRef {
	return ParentRef{folder: id, set: true}
}

// IsRoot сообщает, указывает ли ссылка на корень.
func (p ParentRef) IsRoot() bool {
	return !p.set
}

// FolderID возвращает UUID папки и false для корня.
func (p ParentRef) FolderID() (uuid.UUID, bool) {
	return p.folder, p.set
}

// String возвращает "0" для корня и UUID папки иначе.
func (p ParentRef) String() string {
	if !p.set {
		return "0"
	}
	return p.folder.String()
}

// ParseParentRef разбирает строковое представление parentId.
// Пустая строка и "0" означают корень.
func ParseParentRef(s string) (ParentRef, error) {
	if s == "" || s == "0" {
		return Root(), nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return ParentRef{}, fmt.Errorf("%w: %q", ErrInvalidParent, s)
	}
	return Folder(id), nil
}

// MarshalJSON: корень сериализуется как число 0, папка — как строка UUID.
func (p ParentRef) MarshalJSON() ([]byte, error) {
	if !p.set {
		return []byte("0"), nil
	}
	return json.Marshal(p.folder.String())
}

// UnmarshalJSON принимает число 0, строку "0", null или строку UUID.
func (p *ParentRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = Root()
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		ref, err := ParseParentRef(s)
		if err != nil {
			return err
		}
		*p = ref
		return nil
	}

	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil || n != 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParent, string(data))
	}
	*p = Root()
	return nil
}

// FileRecord — запись файла, папки или изображения.
type FileRecord struct {
	// ID — UUID записи, назначается при создании
	ID uuid.UUID
	// OwnerID — идентификатор владельца
	OwnerID string
	// Name — имя, заданное пользователем
	Name string
	// Kind — folder, file или image
	Kind Kind
	// IsPublic — признак публичного доступа на чтение
	IsPublic bool
	// Parent — родительская папка или корень
	Parent ParentRef
	// LocalPath — путь к основному блобу; пусто для папок.
	// Никогда не отдаётся наружу.
	LocalPath string
}

// FileView — внешнее представление записи (без LocalPath).
type FileView struct {
	ID       string    `json:"id"`
	OwnerID  string    `json:"ownerId"`
	Name     string    `json:"name"`
	Kind     Kind      `json:"kind"`
	IsPublic bool      `json:"isPublic"`
	ParentID ParentRef `json:"parentId"`
}

// View возвращает внешнее представление записи.
func (f *FileRecord) View() FileView {
	return FileView{
		ID:       f.ID.String(),
		OwnerID:  f.OwnerID,
		Name:     f.Name,
		Kind:     f.Kind,
		IsPublic: f.IsPublic,
		ParentID: f.Parent,
	}
}
