package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/bigkaa/files-manager/internal/domain/model"
)

// PageSize — фиксированный размер страницы списка.
const PageSize = 20

// FileRepository — хранилище метаданных файлового дерева (таблица files).
type FileRepository interface {
	// Insert сохраняет новую запись. Если ID не задан, генерирует UUID.
	Insert(ctx context.Context, rec *model.FileRecord) (uuid.UUID, error)
	// GetByID возвращает запись по ID или ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*model.FileRecord, error)
	// GetByIDAndOwner возвращает запись, принадлежащую owner, или ErrNotFound.
	GetByIDAndOwner(ctx context.Context, id uuid.UUID, owner string) (*model.FileRecord, error)
	// UpdateVisibility атомарно меняет isPublic записи владельца
	// и возвращает обновлённую запись. Чужая или отсутствующая запись — ErrNotFound.
	UpdateVisibility(ctx context.Context, id uuid.UUID, owner string, public bool) (*model.FileRecord, error)
	// ListByParent возвращает видимых viewer детей parent в порядке вставки.
	ListByParent(ctx context.Context, parent model.ParentRef, viewer string, page int) ([]*model.FileRecord, error)
	// Count возвращает общее число записей.
	Count(ctx context.Context) (int64, error)
	// ExistsByLocalPath сообщает, ссылается ли какая-либо запись на блоб.
	ExistsByLocalPath(ctx context.Context, path string) (bool, error)
}

type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий метаданных файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

const fileColumns = `id, owner_id, name, kind, is_public, parent_id, local_path`

func (r *fileRepo) Insert(ctx context.Context, rec *model.FileRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	var parent pgtype.UUID
	if id, ok := rec.Parent.FolderID(); ok {
		parent = pgUUID(id)
	}
	var localPath pgtype.Text
	if rec.LocalPath != "" {
		localPath = pgtype.Text{String: rec.LocalPath, Valid: true}
	}

	query := `
		INSERT INTO files (id, owner_id, name, kind, is_public, parent_id, local_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		pgUUID(rec.ID), rec.OwnerID, rec.Name, string(rec.Kind), rec.IsPublic, parent, localPath,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("%w: запись %s уже существует", ErrConflict, rec.ID)
		}
		return uuid.Nil, fmt.Errorf("ошибка вставки записи: %w", err)
	}
	return rec.ID, nil
}

func (r *fileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	rec, err := scanFile(r.db.QueryRow(ctx, query, pgUUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return rec, nil
}

func (r *fileRepo) GetByIDAndOwner(ctx context.Context, id uuid.UUID, owner string) (*model.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND owner_id = $2`

	rec, err := scanFile(r.db.QueryRow(ctx, query, pgUUID(id), owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return rec, nil
}

func (r *fileRepo) UpdateVisibility(ctx context.Context, id uuid.UUID, owner string, public bool) (*model.FileRecord, error) {
	query := `
		UPDATE files SET is_public = $3
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + fileColumns

	rec, err := scanFile(r.db.QueryRow(ctx, query, pgUUID(id), owner, public))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления видимости: %w", err)
	}
	return rec, nil
}

// buildListWhere строит WHERE-условие списка: точное совпадение родителя
// и видимость (публичные записи плюс записи viewer).
func buildListWhere(parent model.ParentRef, viewer string) (string, []any) {
	var args []any
	where := "WHERE parent_id IS NULL"
	if id, ok := parent.FolderID(); ok {
		args = append(args, pgUUID(id))
		where = fmt.Sprintf("WHERE parent_id = $%d", len(args))
	}

	if viewer == "" {
		where += " AND is_public"
		return where, args
	}
	args = append(args, viewer)
	where += fmt.Sprintf(" AND (is_public OR owner_id = $%d)", len(args))
	return where, args
}

func (r *fileRepo) ListByParent(ctx context.Context, parent model.ParentRef, viewer string, page int) ([]*model.FileRecord, error) {
	if page < 0 {
		page = 0
	}
	where, args := buildListWhere(parent, viewer)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s FROM files
		%s
		ORDER BY seq
		LIMIT $%d OFFSET $%d`, fileColumns, where, argNum, argNum+1)
	args = append(args, PageSize, page*PageSize)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка: %w", err)
	}
	defer rows.Close()

	result := make([]*model.FileRecord, 0, PageSize)
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *fileRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей: %w", err)
	}
	return n, nil
}

func (r *fileRepo) ExistsByLocalPath(ctx context.Context, path string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM files WHERE local_path = $1)`, path,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки блоба: %w", err)
	}
	return exists, nil
}

// scanFile сканирует строку результата в FileRecord.
func scanFile(row pgx.Row) (*model.FileRecord, error) {
	var (
		id        pgtype.UUID
		parent    pgtype.UUID
		localPath pgtype.Text
		kind      string
	)
	rec := &model.FileRecord{}
	if err := row.Scan(&id, &rec.OwnerID, &rec.Name, &kind, &rec.IsPublic, &parent, &localPath); err != nil {
		return nil, err
	}

	rec.ID = uuid.UUID(id.Bytes)
	rec.Kind = model.Kind(kind)
	rec.Parent = model.Root()
	if parent.Valid {
		rec.Parent = model.Folder(uuid.UUID(parent.Bytes))
	}
	if localPath.Valid {
		rec.LocalPath = localPath.String
	}
	return rec, nil
}
