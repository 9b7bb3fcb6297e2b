package cycle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/focuscycle/internal/cache"
)

// memoryStore 是测试用的内存键值存储。
type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}}
}

func (m *memoryStore) Save(key string, value any) bool {
	payload, err := json.Marshal(value)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = payload
	return true
}

func (m *memoryStore) Raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memoryStore) Remove(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return true
}

// fakeMirror 记录所有远端调用，fail 为 true 时全部失败。
type fakeMirror struct {
	mu     sync.Mutex
	fail   bool
	cycles []cache.RemoteCycle
	calls  []string

	sessions []cache.SessionRecord
	subjects map[string]cache.RemoteSubject
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{subjects: map[string]cache.RemoteSubject{}}
}

func (f *fakeMirror) record(call string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return !f.fail
}

func (f *fakeMirror) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, call := range f.calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakeMirror) GetCycles(ctx context.Context) []cache.RemoteCycle {
	if !f.record("get cycles") {
		return nil
	}
	return f.cycles
}

func (f *fakeMirror) CreateCycle(ctx context.Context, c cache.RemoteCycle) *cache.RemoteCycle {
	if !f.record("create cycle " + c.ID) {
		return nil
	}
	return &c
}

func (f *fakeMirror) UpdateCycle(ctx context.Context, id string, u cache.CycleUpdate) bool {
	return f.record("update cycle " + id)
}

func (f *fakeMirror) DeleteCycle(ctx context.Context, id string) bool {
	return f.record("delete cycle " + id)
}

func (f *fakeMirror) ActivateCycle(ctx context.Context, id string) bool {
	return f.record("activate cycle " + id)
}

func (f *fakeMirror) ResetWeek(ctx context.Context, id string) bool {
	return f.record("reset week " + id)
}

func (f *fakeMirror) CreateSubject(ctx context.Context, s cache.RemoteSubject) *cache.RemoteSubject {
	if !f.record("create subject " + s.ID) {
		return nil
	}
	f.mu.Lock()
	f.subjects[s.ID] = s
	f.mu.Unlock()
	return &s
}

func (f *fakeMirror) UpdateSubject(ctx context.Context, id string, s cache.RemoteSubject) bool {
	if !f.record("update subject " + id) {
		return false
	}
	f.mu.Lock()
	f.subjects[id] = s
	f.mu.Unlock()
	return true
}

func (f *fakeMirror) DeleteSubject(ctx context.Context, id string) bool {
	return f.record("delete subject " + id)
}

func (f *fakeMirror) CreateSession(ctx context.Context, s cache.SessionRecord) bool {
	if !f.record("create session " + s.SubjectID) {
		return false
	}
	f.mu.Lock()
	f.sessions = append(f.sessions, s)
	f.mu.Unlock()
	return true
}

// testClock 是可手动推进的时钟。
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

// wednesday 是 2024-05-08 10:00，当周周一为 2024-05-06。
var wednesday = time.Date(2024, 5, 8, 10, 0, 0, 0, time.Local)

func setupRepository(t *testing.T, remote Mirror) (*Repository, *memoryStore, *testClock) {
	t.Helper()
	store := newMemoryStore()
	clock := newTestClock(wednesday)
	repo := Open(context.Background(), store, remote, WithClock(clock.Now), WithIDGenerator(sequentialIDs()))
	t.Cleanup(repo.Close)
	return repo, store, clock
}

func mustAddSubject(t *testing.T, repo *Repository, spec SubjectSpec) *Subject {
	t.Helper()
	subject, err := repo.AddSubject(spec, "")
	if err != nil {
		t.Fatalf("AddSubject returned error: %v", err)
	}
	return subject
}

func ptr[T any](v T) *T {
	return &v
}
