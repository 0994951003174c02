package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockRedis записывает LPUSH и PUBLISH.
type mockRedis struct {
	mu        sync.Mutex
	pushed    map[string][]string
	published map[string][]string
	err       error
	block     chan struct{}
}

func newMockRedis() *mockRedis {
	return &mockRedis{pushed: map[string][]string{}, published: map[string][]string{}}
}

func (m *mockRedis) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	for _, v := range values {
		m.pushed[key] = append(m.pushed[key], string(v.([]byte)))
	}
	return redis.NewIntResult(int64(len(m.pushed[key])), nil)
}

func (m *mockRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return redis.NewIntResult(0, m.err)
	}
	m.published[channel] = append(m.published[channel], string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func TestDispatcher_EnqueueAndDrain(t *testing.T) {
	rdb := newMockRedis()
	d := NewDispatcher(rdb, Options{Queue: "fileQueue", Buffer: 8, Workers: 2, Timeout: time.Second}, testLogger())
	d.Start()

	for _, id := range []string{"f1", "f2", "f3"} {
		if !d.Enqueue(Job{FileID: id, UserID: "u1"}) {
			t.Fatalf("Enqueue(%s) вернул false", id)
		}
	}
	d.Stop()

	got := rdb.pushed["fileQueue"]
	if len(got) != 3 {
		t.Fatalf("в очереди %d задач, ожидалось 3", len(got))
	}

	seen := map[string]bool{}
	for _, raw := range got {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			t.Fatalf("некорректный JSON задачи %q: %v", raw, err)
		}
		if job.UserID != "u1" {
			t.Errorf("userId = %q, ожидался u1", job.UserID)
		}
		seen[job.FileID] = true
	}
	if !seen["f1"] || !seen["f2"] || !seen["f3"] {
		t.Errorf("потеряны задачи: %v", seen)
	}
}

func TestDispatcher_JobWireFormat(t *testing.T) {
	data, err := json.Marshal(Job{FileID: "abc", UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"fileId":"abc","userId":"u1"}` {
		t.Errorf("формат задачи = %s", data)
	}
}

func TestDispatcher_FullBufferDrops(t *testing.T) {
	rdb := newMockRedis()
	d := NewDispatcher(rdb, Options{Queue: "fileQueue", Buffer: 1, Workers: 1}, testLogger())

	// Воркеры не запущены: буфер заполняется первой задачей
	if !d.Enqueue(Job{FileID: "f1"}) {
		t.Fatal("первая задача должна поместиться в буфер")
	}
	if d.Enqueue(Job{FileID: "f2"}) {
		t.Error("при переполнении буфера задача должна быть отброшена")
	}
	d.Stop()
}

func TestDispatcher_EnqueueNeverBlocks(t *testing.T) {
	rdb := newMockRedis()
	rdb.block = make(chan struct{})
	d := NewDispatcher(rdb, Options{Queue: "fileQueue", Buffer: 2, Workers: 1}, testLogger())
	d.Start()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Enqueue(Job{FileID: "f"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue заблокировался при зависшем Redis")
	}

	close(rdb.block)
	d.Stop()
}

func TestDispatcher_RedisFailureIsSwallowed(t *testing.T) {
	rdb := newMockRedis()
	rdb.err = errors.New("READONLY You can't write against a read only replica")
	d := NewDispatcher(rdb, Options{Queue: "fileQueue", Buffer: 4, Workers: 1}, testLogger())
	d.Start()

	if !d.Enqueue(Job{FileID: "f1"}) {
		t.Error("ошибка Redis не должна влиять на приём задачи")
	}
	d.Stop()

	if len(rdb.pushed["fileQueue"]) != 0 {
		t.Error("задача не должна была попасть в очередь")
	}
}

func TestDispatcher_EnqueueAfterStop(t *testing.T) {
	d := NewDispatcher(newMockRedis(), Options{Queue: "q", Buffer: 1, Workers: 1}, testLogger())
	d.Start()
	d.Stop()
	d.Stop() // повторная остановка безопасна

	if d.Enqueue(Job{FileID: "late"}) {
		t.Error("после Stop задача должна быть отброшена")
	}
}

func TestDiagnostics_EmitIdentityProbe(t *testing.T) {
	rdb := newMockRedis()
	diag := NewDiagnostics(rdb, "files:diagnostics", testLogger())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	diag.now = func() time.Time { return fixed }

	diag.EmitIdentityProbe(context.Background(), "image")

	msgs := rdb.published["files:diagnostics"]
	if len(msgs) != 1 {
		t.Fatalf("опубликовано %d событий, ожидалось 1", len(msgs))
	}
	var ev Event
	if err := json.Unmarshal([]byte(msgs[0]), &ev); err != nil {
		t.Fatalf("некорректный JSON события: %v", err)
	}
	if ev.Event != EventIdentityProbe || ev.Kind != "image" || !ev.At.Equal(fixed) {
		t.Errorf("событие = %+v", ev)
	}
	if len(rdb.pushed) != 0 {
		t.Error("диагностика не должна писать в очередь задач")
	}
}

func TestDiagnostics_Failures(t *testing.T) {
	rdb := newMockRedis()
	rdb.err = errors.New("connection reset")

	// Ни ошибка публикации, ни отсутствие издателя не приводят к панике
	NewDiagnostics(rdb, "c", testLogger()).EmitIdentityProbe(context.Background(), "image")
	NewDiagnostics(nil, "c", testLogger()).EmitIdentityProbe(context.Background(), "image")
}

// stalledPublisher не отвечает, пока не истечёт контекст.
type stalledPublisher struct {
	hadDeadline bool
}

func (p *stalledPublisher) Publish(ctx context.Context, _ string, _ interface{}) *redis.IntCmd {
	_, p.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return redis.NewIntResult(0, ctx.Err())
}

func TestDiagnostics_StalledRedisIsBounded(t *testing.T) {
	pub := &stalledPublisher{}
	diag := NewDiagnostics(pub, "c", testLogger())
	diag.timeout = 20 * time.Millisecond

	start := time.Now()
	diag.EmitIdentityProbe(context.Background(), "image")

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("публикация заняла %v, ожидалось не дольше таймаута", elapsed)
	}
	if !pub.hadDeadline {
		t.Error("контекст публикации без дедлайна")
	}
}
