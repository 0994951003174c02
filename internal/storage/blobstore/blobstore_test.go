package blobstore

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "files")

	s, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}
	if s.Root() != dir {
		t.Errorf("Root() = %s, ожидался %s", s.Root(), dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("директория не создана: %v", err)
	}

	// Повторный вызов идемпотентен
	if _, err := New(dir); err != nil {
		t.Errorf("повторный New() ошибка: %v", err)
	}
}

func TestWriteRead(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() ошибка: %v", err)
	}

	data := []byte("Hello Webstack!\n")
	path, err := s.Write(data)
	if err != nil {
		t.Fatalf("Write() ошибка: %v", err)
	}
	if filepath.Dir(path) != s.Root() {
		t.Errorf("блоб записан вне корня: %s", path)
	}
	if _, err := os.Stat(path + tmpSuffix); !errors.Is(err, fs.ErrNotExist) {
		t.Error("временный файл не удалён после записи")
	}

	got, err := s.Read(path, "")
	if err != nil {
		t.Fatalf("Read() ошибка: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read() = %q, ожидалось %q", got, data)
	}

	other, err := s.Write(data)
	if err != nil {
		t.Fatalf("второй Write() ошибка: %v", err)
	}
	if other == path {
		t.Error("два блоба получили одинаковый путь")
	}
}

func TestWrite_EmptyData(t *testing.T) {
	s, _ := New(t.TempDir())

	path, err := s.Write(nil)
	if err != nil {
		t.Fatalf("Write(nil) ошибка: %v", err)
	}
	got, err := s.Read(path, "")
	if err != nil || len(got) != 0 {
		t.Errorf("Read() = %q, %v; ожидался пустой блоб", got, err)
	}
}

func TestRead_Variant(t *testing.T) {
	s, _ := New(t.TempDir())

	path, _ := s.Write([]byte("original"))
	if err := os.WriteFile(VariantPath(path, "250"), []byte("thumb"), 0o640); err != nil {
		t.Fatalf("ошибка записи варианта: %v", err)
	}

	got, err := s.Read(path, "250")
	if err != nil {
		t.Fatalf("Read(250) ошибка: %v", err)
	}
	if string(got) != "thumb" {
		t.Errorf("Read(250) = %q, ожидалось thumb", got)
	}

	if _, err := s.Read(path, "100"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read(100) ошибка = %v, ожидалась ErrNotFound", err)
	}
}

func TestRead_Missing(t *testing.T) {
	s, _ := New(t.TempDir())

	_, err := s.Read(filepath.Join(s.Root(), "nope"), "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s, _ := New(t.TempDir())

	path, _ := s.Write([]byte("x"))
	if err := s.Delete(path); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Error("файл не удалён")
	}
	// Повторное удаление — не ошибка
	if err := s.Delete(path); err != nil {
		t.Errorf("повторный Delete() ошибка: %v", err)
	}
}

func TestScan(t *testing.T) {
	s, _ := New(t.TempDir())

	path, _ := s.Write([]byte("x"))
	_ = os.WriteFile(VariantPath(path, "500"), []byte("v"), 0o640)
	_ = os.WriteFile(filepath.Join(s.Root(), "abandoned"+tmpSuffix), []byte("t"), 0o640)
	_ = os.Mkdir(filepath.Join(s.Root(), "subdir"), 0o750)

	blobs, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() ошибка: %v", err)
	}
	if len(blobs) != 3 {
		t.Fatalf("Scan() вернул %d файлов, ожидалось 3", len(blobs))
	}

	for _, b := range blobs {
		switch {
		case b.Path == path:
			if b.PrimaryPath != path || b.Temp {
				t.Errorf("основной блоб: %+v", b)
			}
		case strings.HasSuffix(b.Path, "_500"):
			if b.PrimaryPath != path {
				t.Errorf("вариант не связан с основным блобом: %+v", b)
			}
		default:
			if !b.Temp {
				t.Errorf("временный файл не распознан: %+v", b)
			}
		}
	}
}

func TestSafeMessage(t *testing.T) {
	pathErr := &fs.PathError{Op: "open", Path: "/secret/root/abc", Err: fs.ErrPermission}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"path error", pathErr, "open: permission denied"},
		{"обёрнутая path error", fmt.Errorf("запись: %w", pathErr), "open: permission denied"},
		{"link error", &os.LinkError{Op: "rename", Old: "/a", New: "/b", Err: fs.ErrExist}, "rename: file already exists"},
		{"не найден", ErrNotFound, "blob not found"},
		{"прочее", errors.New("/secret/path exploded"), "blob storage failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeMessage(tt.err)
			if got != tt.want {
				t.Errorf("SafeMessage() = %q, ожидалось %q", got, tt.want)
			}
			if strings.Contains(got, "/secret") {
				t.Errorf("сообщение раскрывает путь: %q", got)
			}
		})
	}
}
