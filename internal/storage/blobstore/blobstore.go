// Пакет blobstore — хранение содержимого файлов на локальном диске.
// Основной блоб хранится под именем UUID в корневой директории,
// варианты (миниатюры) — рядом, с суффиксом _{size}.
package blobstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound — блоб или его вариант отсутствует на диске.
var ErrNotFound = errors.New("блоб не найден")

// tmpSuffix — суффикс временного файла на время записи.
const tmpSuffix = ".tmp"

// Store — хранилище блобов в директории root.
type Store struct {
	root string
}

// BlobInfo — сведения о файле в корневой директории.
type BlobInfo struct {
	// Path — абсолютный путь файла
	Path string
	// PrimaryPath — путь основного блоба, к которому относится файл
	PrimaryPath string
	// ModTime — время последнего изменения
	ModTime time.Time
	// Temp — незавершённая запись (файл .tmp)
	Temp bool
}

// New создаёт Store. Директория создаётся при необходимости;
// повторный и конкурентный вызов безопасны.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("некорректный путь хранилища %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища %s: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

// Root возвращает корневую директорию хранилища.
func (s *Store) Root() string {
	return s.root
}

// Write сохраняет данные под новым UUID-именем и возвращает полный путь.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
func (s *Store) Write(data []byte) (string, error) {
	// Корень мог быть удалён после старта
	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.root, uuid.NewString())
	tmpPath := fullPath + tmpSuffix

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return fullPath, nil
}

// VariantPath возвращает путь варианта размера size для блоба path.
func VariantPath(path, size string) string {
	return path + "_" + size
}

// Read возвращает содержимое блоба или, если size не пуст, его варианта.
func (s *Store) Read(path, size string) ([]byte, error) {
	if size != "" {
		path = VariantPath(path, size)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Delete удаляет файл. Отсутствие файла ошибкой не считается.
func (s *Store) Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Scan перечисляет файлы корневой директории (без рекурсии).
func (s *Store) Scan() ([]BlobInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	blobs := make([]BlobInfo, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Файл удалён между ReadDir и Info
			continue
		}
		name := e.Name()
		blobs = append(blobs, BlobInfo{
			Path:        filepath.Join(s.root, name),
			PrimaryPath: filepath.Join(s.root, primaryName(name)),
			ModTime:     info.ModTime(),
			Temp:        strings.HasSuffix(name, tmpSuffix),
		})
	}
	return blobs, nil
}

// primaryName отбрасывает суффиксы .tmp и _{size}.
func primaryName(name string) string {
	name = strings.TrimSuffix(name, tmpSuffix)
	if i := strings.IndexByte(name, '_'); i > 0 {
		return name[:i]
	}
	return name
}

// SafeMessage возвращает текст ошибки ввода-вывода без путей файловой системы.
func SafeMessage(err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Op + ": " + pathErr.Err.Error()
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return linkErr.Op + ": " + linkErr.Err.Error()
	}
	if errors.Is(err, ErrNotFound) {
		return "blob not found"
	}
	return "blob storage failure"
}
