package cycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/focuscycle/internal/cache"
	"github.com/focuscycle/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrCycleNotFound 在指定循环不存在时返回
	ErrCycleNotFound = errors.New("cycle not found")
	// ErrSubjectNotFound 在指定科目不存在时返回
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrNoActiveCycle 在没有激活循环时返回
	ErrNoActiveCycle = errors.New("no active cycle")
	// ErrNoSubjects 在激活循环没有科目时返回
	ErrNoSubjects = errors.New("active cycle has no subjects")
	// ErrLastCycle 拒绝删除最后一个循环
	ErrLastCycle = errors.New("cannot delete the last remaining cycle")
	// ErrNegativeMinutes 拒绝把本周分钟数调整为负数
	ErrNegativeMinutes = errors.New("current week minutes cannot be negative")
	// ErrInvalidMinutes 拒绝记录非正数时长的学习
	ErrInvalidMinutes = errors.New("session minutes must be positive")
	// ErrInvalidInput 在新增或更新字段校验失败时返回
	ErrInvalidInput = errors.New("invalid cycle input")
	// ErrInvalidImport 在导入数据格式不正确时返回
	ErrInvalidImport = errors.New("invalid import payload")
)

// Repository 持有全部学习循环的内存状态，负责配额计算、周切换与导入导出。
// 每次变更先同步写入本地缓存，再把远端镜像任务放入后台队列；
// 远端失败只记录日志，不回滚本地状态。
// 所有读取方法返回副本，调用方修改返回值不会影响仓库。
type Repository struct {
	mu       sync.Mutex
	cycles   []*Cycle
	activeID string

	local  cache.KeyValue
	remote Mirror
	queue  *syncQueue

	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// Option 配置 Repository。
type Option func(*Repository)

// WithLogger 注入日志实例。
func WithLogger(l *zap.Logger) Option {
	return func(r *Repository) {
		r.log = logger.OrNop(l)
	}
}

// WithClock 注入时钟，测试中用于固定周边界。
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator 替换 ID 生成方式。
func WithIDGenerator(next func() string) Option {
	return func(r *Repository) {
		if next != nil {
			r.newID = next
		}
	}
}

// New 构造空仓库，remote 为 nil 时以纯离线模式运行，local 为 nil 时只保存在内存中。
// 调用方需要随后调用 Load。
func New(local cache.KeyValue, remote Mirror, opts ...Option) *Repository {
	r := &Repository{
		local:  local,
		remote: remote,
		log:    zap.NewNop(),
		now:    time.Now,
		newID:  newTimeOrderedID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if remote != nil {
		r.queue = newSyncQueue(r.log)
	}
	return r
}

// Open 构造仓库并立即加载，是 New + Load 的便捷写法。
func Open(ctx context.Context, local cache.KeyValue, remote Mirror, opts ...Option) *Repository {
	r := New(local, remote, opts...)
	r.Load(ctx)
	return r
}

// Close 等待已入队的远端任务执行完毕，之后的变更只写本地。
func (r *Repository) Close() {
	if r.queue != nil {
		r.queue.close()
	}
}

// Flush 等待已入队的远端任务执行完毕但保持队列可用。
func (r *Repository) Flush() {
	if r.queue != nil {
		r.queue.flush()
	}
}

// Load 优先从远端恢复全部循环，远端不可用或为空时回退到本地缓存。
// 加载后保证至少存在一个循环、激活 ID 有效，并执行一次周切换检查。
func (r *Repository) Load(ctx context.Context) {
	var remoteCycles []cache.RemoteCycle
	if r.remote != nil {
		remoteCycles = r.remote.GetCycles(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cycles = nil
	r.activeID = ""

	if len(remoteCycles) > 0 {
		for _, rc := range remoteCycles {
			c := fromRemoteCycle(rc)
			r.cycles = append(r.cycles, &c)
			if rc.IsActive && r.activeID == "" {
				r.activeID = rc.ID
			}
		}
		r.log.Info("study cycles loaded from remote", zap.Int("cycles", len(r.cycles)))
	} else if r.local != nil {
		bundle := cache.Load(r.local, cache.KeyStudyCycle, Bundle{})
		for i := range bundle.Cycles {
			c := bundle.Cycles[i]
			r.cycles = append(r.cycles, &c)
		}
		r.activeID = bundle.ActiveCycleID
		r.log.Info("study cycles loaded from local cache", zap.Int("cycles", len(r.cycles)))
	}

	r.normalizeLocked()

	if len(r.cycles) == 0 {
		c := r.newCycleLocked(DefaultCycleName, DefaultStudyDays())
		r.cycles = append(r.cycles, c)
		r.activeID = c.ID
		r.log.Info("created default study cycle", zap.String("cycle_id", c.ID))
	}

	r.checkWeekResetLocked()
	r.persistLocked()
}

func (r *Repository) normalizeLocked() {
	now := r.now()
	kept := r.cycles[:0]
	for _, c := range r.cycles {
		if c == nil || strings.TrimSpace(c.ID) == "" {
			continue
		}
		if c.Subjects == nil {
			c.Subjects = []Subject{}
		}
		if c.StudyDays == nil {
			c.StudyDays = []Weekday{}
		}
		for i := range c.Subjects {
			s := &c.Subjects[i]
			if s.Priority < 1 {
				s.Priority = DefaultPriority
			}
			if strings.TrimSpace(s.Color) == "" {
				s.Color = DefaultColor
			}
			if s.CurrentWeekMinutes < 0 {
				s.CurrentWeekMinutes = 0
			}
		}
		if c.WeekStartDate.IsZero() {
			c.WeekStartDate = WeekStart(now)
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.clampIndex()
		kept = append(kept, c)
	}
	r.cycles = kept

	if r.findCycleLocked(r.activeID) == nil {
		r.activeID = ""
		if len(r.cycles) > 0 {
			r.activeID = r.cycles[0].ID
		}
	}
}

// CreateCycle 新建空循环；如果它是集合中的第一个循环则自动激活。
func (r *Repository) CreateCycle(name string, studyDays []Weekday) (*Cycle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: cycle name is required", ErrInvalidInput)
	}
	if len(studyDays) == 0 {
		studyDays = DefaultStudyDays()
	}
	days, err := normalizeStudyDays(studyDays)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.newCycleLocked(name, days)
	r.cycles = append(r.cycles, c)
	if len(r.cycles) == 1 {
		r.activeID = c.ID
	}

	r.persistLocked()
	out := c.clone()
	return &out, nil
}

func (r *Repository) newCycleLocked(name string, days []Weekday) *Cycle {
	now := r.now()
	return &Cycle{
		ID:            r.newID(),
		Name:          name,
		StudyDays:     days,
		Subjects:      []Subject{},
		CreatedAt:     now,
		WeekStartDate: WeekStart(now),
	}
}

// AddSubject 向循环追加科目，cycleID 为空时使用激活循环。
func (r *Repository) AddSubject(spec SubjectSpec, cycleID string) (*Subject, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.resolveCycleLocked(cycleID)
	if c == nil {
		return nil, ErrCycleNotFound
	}

	subject := Subject{
		ID:          r.newID(),
		Name:        strings.TrimSpace(spec.Name),
		Color:       strings.TrimSpace(spec.Color),
		Priority:    spec.Priority,
		WeeklyHours: spec.WeeklyHours,
		CreatedAt:   r.now(),
	}
	if subject.Color == "" {
		subject.Color = DefaultColor
	}
	if subject.Priority == 0 {
		subject.Priority = DefaultPriority
	}
	if subject.WeeklyHours == 0 {
		subject.WeeklyHours = DefaultWeeklyHours
	}

	c.Subjects = append(c.Subjects, subject)
	r.persistLocked()

	out := subject.clone()
	return &out, nil
}

// RemoveSubject 删除科目并修正当前轮换位置，远端删除失败不影响本地结果。
func (r *Repository) RemoveSubject(subjectID, cycleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.resolveCycleLocked(cycleID)
	if c == nil {
		return ErrCycleNotFound
	}
	idx := c.subjectIndex(subjectID)
	if idx < 0 {
		return ErrSubjectNotFound
	}

	c.Subjects = append(c.Subjects[:idx], c.Subjects[idx+1:]...)
	c.clampIndex()

	r.enqueue("delete subject", "", func(ctx context.Context, m Mirror) bool {
		return m.DeleteSubject(ctx, subjectID)
	})
	r.persistLocked()
	return nil
}

// EditSubject 按字段合并更新科目，所有字段校验通过后才会写入。
func (r *Repository) EditSubject(subjectID string, patch SubjectPatch, cycleID string) (*Subject, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.resolveCycleLocked(cycleID)
	if c == nil {
		return nil, ErrCycleNotFound
	}
	idx := c.subjectIndex(subjectID)
	if idx < 0 {
		return nil, ErrSubjectNotFound
	}

	patch.apply(&c.Subjects[idx])
	r.enqueueSubjectUpdate(c, idx)
	r.persistLocked()

	out := c.Subjects[idx].clone()
	return &out, nil
}

// AdjustWeekMinutes 手动增减本周分钟数，结果为负时拒绝且不做任何修改。
func (r *Repository) AdjustWeekMinutes(subjectID string, delta int, cycleID string) (*Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.resolveCycleLocked(cycleID)
	if c == nil {
		return nil, ErrCycleNotFound
	}
	idx := c.subjectIndex(subjectID)
	if idx < 0 {
		return nil, ErrSubjectNotFound
	}

	next := c.Subjects[idx].CurrentWeekMinutes + delta
	if next < 0 {
		return nil, ErrNegativeMinutes
	}

	c.Subjects[idx].CurrentWeekMinutes = next
	r.enqueueSubjectUpdate(c, idx)
	r.persistLocked()

	out := c.Subjects[idx].clone()
	return &out, nil
}

// SetActiveCycle 切换激活循环，未知 ID 不做修改。
func (r *Repository) SetActiveCycle(cycleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findCycleLocked(cycleID) == nil {
		return ErrCycleNotFound
	}

	r.activeID = cycleID
	r.enqueue("activate cycle", "", func(ctx context.Context, m Mirror) bool {
		return m.ActivateCycle(ctx, cycleID)
	})
	r.persistLocked()
	return nil
}

// DeleteCycle 删除循环；只剩一个循环时拒绝。删除激活循环后改为激活剩余的第一个。
func (r *Repository) DeleteCycle(cycleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, c := range r.cycles {
		if c.ID == cycleID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrCycleNotFound
	}
	if len(r.cycles) <= 1 {
		return ErrLastCycle
	}

	r.cycles = append(r.cycles[:idx], r.cycles[idx+1:]...)
	if r.activeID == cycleID {
		r.activeID = r.cycles[0].ID
	}

	r.enqueue("delete cycle", "", func(ctx context.Context, m Mirror) bool {
		return m.DeleteCycle(ctx, cycleID)
	})
	r.persistLocked()
	return nil
}

// EditCycle 按字段更新循环名称与学习日。
func (r *Repository) EditCycle(cycleID string, patch CyclePatch) (*Cycle, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findCycleLocked(cycleID)
	if c == nil {
		return nil, ErrCycleNotFound
	}

	patch.apply(c)

	remote := toRemoteCycle(*c, false)
	weekStart := c.WeekStartDate
	r.enqueue("update cycle", "", func(ctx context.Context, m Mirror) bool {
		return m.UpdateCycle(ctx, cycleID, cache.CycleUpdate{Name: remote.Name, StudyDays: remote.StudyDays, WeekStartDate: &weekStart})
	})
	r.persistLocked()

	out := c.clone()
	return &out, nil
}

// JumpToSubject 把激活循环的轮换位置移动到指定科目。
func (r *Repository) JumpToSubject(subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findCycleLocked(r.activeID)
	if c == nil {
		return ErrNoActiveCycle
	}
	idx := c.subjectIndex(subjectID)
	if idx < 0 {
		return ErrSubjectNotFound
	}

	c.CurrentSubjectIndex = idx
	r.persistLocked()
	return nil
}

// Advance 轮换到下一个科目（末尾回到第一个），返回新的当前科目。
func (r *Repository) Advance() (*Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findCycleLocked(r.activeID)
	if c == nil {
		return nil, ErrNoActiveCycle
	}
	if len(c.Subjects) == 0 {
		return nil, ErrNoSubjects
	}

	c.CurrentSubjectIndex = (c.CurrentSubjectIndex + 1) % len(c.Subjects)
	r.persistLocked()

	out := c.Subjects[c.CurrentSubjectIndex].clone()
	return &out, nil
}

// RecordSession 把一次完成的学习计入激活循环中的科目。
// 本地写入后再异步上报学习记录，上报结果不影响返回值。
func (r *Repository) RecordSession(subjectID string, minutes int) error {
	if minutes <= 0 {
		return ErrInvalidMinutes
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findCycleLocked(r.activeID)
	if c == nil {
		return ErrNoActiveCycle
	}
	idx := c.subjectIndex(subjectID)
	if idx < 0 {
		return ErrSubjectNotFound
	}

	now := r.now()
	subject := &c.Subjects[idx]
	subject.CurrentWeekMinutes += minutes
	subject.TotalMinutes += minutes
	subject.TotalSessions++
	studied := now
	subject.LastStudied = &studied

	r.persistLocked()

	session := cache.SessionRecord{
		SubjectID:   subjectID,
		Minutes:     minutes,
		StartedAt:   now.Add(-time.Duration(minutes) * time.Minute),
		CompletedAt: now,
	}
	r.enqueue("create session", "", func(ctx context.Context, m Mirror) bool {
		return m.CreateSession(ctx, session)
	})
	return nil
}

// CheckWeekReset 对周起点早于本周一的循环清零本周分钟数并推进周起点。
// 无论是否有变化都会重新持久化；同一周内重复调用不会产生变化。
func (r *Repository) CheckWeekReset() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := r.checkWeekResetLocked()
	r.persistLocked()
	return changed
}

func (r *Repository) checkWeekResetLocked() bool {
	current := WeekStart(r.now())
	changed := false
	for _, c := range r.cycles {
		if !c.WeekStartDate.Before(current) {
			continue
		}
		for i := range c.Subjects {
			c.Subjects[i].CurrentWeekMinutes = 0
		}
		c.WeekStartDate = current
		changed = true

		cycleID := c.ID
		r.enqueue("reset week", "", func(ctx context.Context, m Mirror) bool {
			return m.ResetWeek(ctx, cycleID)
		})
		r.log.Info("weekly progress reset", zap.String("cycle_id", cycleID), zap.Time("week_start", current))
	}
	return changed
}

// ActiveCycleID 返回当前激活循环 ID。
func (r *Repository) ActiveCycleID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// ActiveCycle 返回激活循环副本。
func (r *Repository) ActiveCycle() (*Cycle, bool) {
	return r.Cycle(r.ActiveCycleID())
}

// Cycle 返回指定循环副本。
func (r *Repository) Cycle(cycleID string) (*Cycle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findCycleLocked(cycleID)
	if c == nil {
		return nil, false
	}
	out := c.clone()
	return &out, true
}

// Cycles 按存储顺序返回全部循环副本。
func (r *Repository) Cycles() []Cycle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Cycle, 0, len(r.cycles))
	for _, c := range r.cycles {
		out = append(out, c.clone())
	}
	return out
}

// ListCycles 返回循环概要列表。
func (r *Repository) ListCycles() []CycleSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]CycleSummary, 0, len(r.cycles))
	for _, c := range r.cycles {
		items = append(items, CycleSummary{
			ID:            c.ID,
			Name:          c.Name,
			Active:        c.ID == r.activeID,
			SubjectsCount: len(c.Subjects),
			StudyDays:     append([]Weekday(nil), c.StudyDays...),
			CreatedAt:     c.CreatedAt,
		})
	}
	return items
}

// Subject 返回指定循环（为空时为激活循环）中的科目副本。
func (r *Repository) Subject(subjectID, cycleID string) (*Subject, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.subjectLocked(r.resolveCycleLocked(cycleID), subjectID)
	if s == nil {
		return nil, false
	}
	out := s.clone()
	return &out, true
}

// CurrentSubject 返回激活循环当前轮换到的科目。
func (r *Repository) CurrentSubject() (*Subject, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findCycleLocked(r.activeID)
	if c == nil || len(c.Subjects) == 0 {
		return nil, false
	}
	out := c.Subjects[c.CurrentSubjectIndex].clone()
	return &out, true
}

func (r *Repository) findCycleLocked(cycleID string) *Cycle {
	if cycleID == "" {
		return nil
	}
	for _, c := range r.cycles {
		if c.ID == cycleID {
			return c
		}
	}
	return nil
}

func (r *Repository) resolveCycleLocked(cycleID string) *Cycle {
	if strings.TrimSpace(cycleID) == "" {
		cycleID = r.activeID
	}
	return r.findCycleLocked(cycleID)
}

func (r *Repository) subjectLocked(c *Cycle, subjectID string) *Subject {
	if c == nil {
		return nil
	}
	idx := c.subjectIndex(subjectID)
	if idx < 0 {
		return nil
	}
	return &c.Subjects[idx]
}

// persistLocked 同步写入本地缓存，然后排入一次全量远端镜像。
func (r *Repository) persistLocked() {
	bundle := Bundle{Cycles: make([]Cycle, 0, len(r.cycles)), ActiveCycleID: r.activeID}
	for _, c := range r.cycles {
		bundle.Cycles = append(bundle.Cycles, c.clone())
	}

	if r.local != nil && !r.local.Save(cache.KeyStudyCycle, bundle) {
		r.log.Warn("study cycles not saved locally")
	}

	r.enqueue("mirror cycles", "mirror", func(ctx context.Context, m Mirror) bool {
		ok := true
		for _, c := range bundle.Cycles {
			if m.CreateCycle(ctx, toRemoteCycle(c, c.ID == bundle.ActiveCycleID)) == nil {
				ok = false
				continue
			}
			for pos, s := range c.Subjects {
				if m.CreateSubject(ctx, toRemoteSubject(s, c.ID, pos)) == nil {
					ok = false
				}
			}
		}
		return ok
	})
}

func (r *Repository) enqueueSubjectUpdate(c *Cycle, idx int) {
	record := toRemoteSubject(c.Subjects[idx].clone(), c.ID, idx)
	r.enqueue("update subject", "", func(ctx context.Context, m Mirror) bool {
		return m.UpdateSubject(ctx, record.ID, record)
	})
}

// enqueue 把远端任务放入后台队列；离线模式下直接忽略。
// run 只能捕获副本，不能引用仓库内部状态。
func (r *Repository) enqueue(op, coalesce string, run func(ctx context.Context, m Mirror) bool) {
	if r.queue == nil {
		return
	}
	remote := r.remote
	r.queue.push(syncJob{op: op, coalesce: coalesce, run: func(ctx context.Context) bool {
		return run(ctx, remote)
	}})
}

func newTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
