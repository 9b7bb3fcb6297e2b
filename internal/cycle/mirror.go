package cycle

import (
	"context"
	"sync"
	"time"

	"github.com/focuscycle/internal/cache"
	"go.uber.org/zap"
)

// Mirror 是仓库需要的远端镜像能力，由 *cache.Remote 实现。
// 所有方法失败时返回 nil/false，不返回错误。
type Mirror interface {
	GetCycles(ctx context.Context) []cache.RemoteCycle
	CreateCycle(ctx context.Context, cycle cache.RemoteCycle) *cache.RemoteCycle
	UpdateCycle(ctx context.Context, id string, update cache.CycleUpdate) bool
	DeleteCycle(ctx context.Context, id string) bool
	ActivateCycle(ctx context.Context, id string) bool
	ResetWeek(ctx context.Context, cycleID string) bool
	CreateSubject(ctx context.Context, subject cache.RemoteSubject) *cache.RemoteSubject
	UpdateSubject(ctx context.Context, id string, subject cache.RemoteSubject) bool
	DeleteSubject(ctx context.Context, id string) bool
	CreateSession(ctx context.Context, session cache.SessionRecord) bool
}

// syncJob 是一次远端镜像动作。coalesce 非空时，同名的待执行任务会被新任务取代。
type syncJob struct {
	op       string
	coalesce string
	run      func(ctx context.Context) bool
}

// syncQueue 用单个后台 goroutine 顺序执行远端任务，入队永不阻塞调用方。
type syncQueue struct {
	mu      sync.Mutex
	pending []syncJob
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
	log     *zap.Logger
}

func newSyncQueue(log *zap.Logger) *syncQueue {
	q := &syncQueue{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		log:     log,
	}
	go q.loop()
	return q
}

func (q *syncQueue) push(job syncJob) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if job.coalesce != "" {
		kept := q.pending[:0]
		for _, pending := range q.pending {
			if pending.coalesce != job.coalesce {
				kept = append(kept, pending)
			}
		}
		q.pending = kept
	}
	q.pending = append(q.pending, job)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *syncQueue) loop() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		job := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		started := time.Now()
		if job.run(context.Background()) {
			q.log.Debug("remote sync done", zap.String("op", job.op), zap.Duration("took", time.Since(started)))
		} else {
			q.log.Warn("remote sync skipped, local state kept", zap.String("op", job.op))
		}
	}
}

// flush 等待此前入队的任务全部执行完毕。
func (q *syncQueue) flush() {
	done := make(chan struct{})
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		<-q.stopped
		return
	}
	q.push(syncJob{op: "flush", run: func(context.Context) bool {
		close(done)
		return true
	}})
	select {
	case <-done:
	case <-q.stopped:
	}
}

// close 拒绝新任务，并等待已入队任务执行完毕。
func (q *syncQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.stopped
}

func toRemoteCycle(c Cycle, active bool) cache.RemoteCycle {
	days := make([]string, len(c.StudyDays))
	for i, day := range c.StudyDays {
		days[i] = string(day)
	}
	return cache.RemoteCycle{
		ID:                  c.ID,
		Name:                c.Name,
		StudyDays:           days,
		CreatedAt:           c.CreatedAt,
		WeekStartDate:       c.WeekStartDate,
		IsActive:            active,
		CurrentSubjectIndex: c.CurrentSubjectIndex,
	}
}

func toRemoteSubject(s Subject, cycleID string, position int) cache.RemoteSubject {
	created := s.CreatedAt
	return cache.RemoteSubject{
		ID:                 s.ID,
		CycleID:            cycleID,
		Name:               s.Name,
		WeeklyHours:        s.WeeklyHours,
		Color:              s.Color,
		Priority:           s.Priority,
		CurrentWeekMinutes: s.CurrentWeekMinutes,
		TotalMinutes:       s.TotalMinutes,
		TotalSessions:      s.TotalSessions,
		LastStudied:        s.LastStudied,
		CreatedAt:          &created,
		Position:           position,
	}
}

// fromRemoteCycle 将远端记录转换为本地结构，缺失字段用默认值补齐。
func fromRemoteCycle(rc cache.RemoteCycle) Cycle {
	days := make([]Weekday, 0, len(rc.StudyDays))
	for _, raw := range rc.StudyDays {
		if day, ok := ParseWeekday(raw); ok {
			days = append(days, day)
		}
	}

	subjects := make([]Subject, 0, len(rc.Subjects))
	for _, rs := range rc.Subjects {
		subject := Subject{
			ID:                 rs.ID,
			Name:               rs.Name,
			Color:              rs.Color,
			Priority:           rs.Priority,
			WeeklyHours:        rs.WeeklyHours,
			CurrentWeekMinutes: rs.CurrentWeekMinutes,
			TotalSessions:      rs.TotalSessions,
			TotalMinutes:       rs.TotalMinutes,
			LastStudied:        rs.LastStudied,
		}
		if rs.CreatedAt != nil {
			subject.CreatedAt = *rs.CreatedAt
		} else {
			subject.CreatedAt = rc.CreatedAt
		}
		subjects = append(subjects, subject)
	}

	return Cycle{
		ID:                  rc.ID,
		Name:                rc.Name,
		StudyDays:           days,
		Subjects:            subjects,
		CreatedAt:           rc.CreatedAt,
		WeekStartDate:       rc.WeekStartDate,
		CurrentSubjectIndex: rc.CurrentSubjectIndex,
	}
}
