package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bigkaa/files-manager/internal/domain/model"
	"github.com/bigkaa/files-manager/internal/queue"
	"github.com/bigkaa/files-manager/internal/repository"
	"github.com/bigkaa/files-manager/internal/storage/blobstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memFiles — in-memory реализация FileRepository.
type memFiles struct {
	mu   sync.Mutex
	recs []*model.FileRecord
	err  error

	insertErr error
}

func (m *memFiles) Insert(_ context.Context, rec *model.FileRecord) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return uuid.Nil, m.insertErr
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	cp := *rec
	m.recs = append(m.recs, &cp)
	return rec.ID, nil
}

func (m *memFiles) find(id uuid.UUID) *model.FileRecord {
	for _, r := range m.recs {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *memFiles) GetByID(_ context.Context, id uuid.UUID) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if r := m.find(id); r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memFiles) GetByIDAndOwner(ctx context.Context, id uuid.UUID, owner string) (*model.FileRecord, error) {
	r, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != owner {
		return nil, repository.ErrNotFound
	}
	return r, nil
}

func (m *memFiles) UpdateVisibility(_ context.Context, id uuid.UUID, owner string, public bool) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r := m.find(id)
	if r == nil || r.OwnerID != owner {
		return nil, repository.ErrNotFound
	}
	r.IsPublic = public
	cp := *r
	return &cp, nil
}

func (m *memFiles) ListByParent(_ context.Context, parent model.ParentRef, viewer string, page int) ([]*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var visible []*model.FileRecord
	for _, r := range m.recs {
		if r.Parent != parent {
			continue
		}
		if r.IsPublic || (viewer != "" && r.OwnerID == viewer) {
			cp := *r
			visible = append(visible, &cp)
		}
	}
	start := page * repository.PageSize
	if start >= len(visible) {
		return []*model.FileRecord{}, nil
	}
	end := min(start+repository.PageSize, len(visible))
	return visible[start:end], nil
}

func (m *memFiles) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return int64(len(m.recs)), nil
}

func (m *memFiles) ExistsByLocalPath(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, r := range m.recs {
		if r.LocalPath == path {
			return true, nil
		}
	}
	return false, nil
}

// mockUsers — UserRepository с function-полями.
type mockUsers struct {
	existsFn func(ctx context.Context, id string) (bool, error)
	countFn  func(ctx context.Context) (int64, error)
}

func (m *mockUsers) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, id)
	}
	return id != "", nil
}

func (m *mockUsers) Count(ctx context.Context) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

// memBlobs — in-memory BlobStore.
type memBlobs struct {
	mu       sync.Mutex
	data     map[string][]byte
	writeErr error
	readErr  error
	deleted  []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{data: map[string][]byte{}}
}

func (m *memBlobs) Write(data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return "", m.writeErr
	}
	path := "/blobs/" + uuid.NewString()
	m.data[path] = data
	return path, nil
}

func (m *memBlobs) Read(path, size string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	if size != "" {
		path = blobstore.VariantPath(path, size)
	}
	d, ok := m.data[path]
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	return d, nil
}

func (m *memBlobs) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, path)
	m.deleted = append(m.deleted, path)
	return nil
}

// recordingQueue запоминает поставленные задачи.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (q *recordingQueue) Enqueue(job queue.Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return true
}

// recordingProbes запоминает диагностические события.
type recordingProbes struct {
	kinds []string
}

func (p *recordingProbes) EmitIdentityProbe(_ context.Context, kind string) {
	p.kinds = append(p.kinds, kind)
}

func newFolder(owner string) *model.FileRecord {
	return &model.FileRecord{OwnerID: owner, Name: "dir", Kind: model.KindFolder, Parent: model.Root()}
}
