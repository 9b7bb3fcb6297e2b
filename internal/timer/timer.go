package timer

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Mode 是计时器当前所处的阶段。
type Mode string

const (
	ModeFocus      Mode = "focus"
	ModeShortBreak Mode = "shortBreak"
	ModeLongBreak  Mode = "longBreak"
)

// ParseMode 解析模式名称，未知名称返回 false。
func ParseMode(raw string) (Mode, bool) {
	switch Mode(raw) {
	case ModeFocus, ModeShortBreak, ModeLongBreak:
		return Mode(raw), true
	}
	return "", false
}

// Kind 是计时器事件类型。
type Kind int

const (
	KindStart Kind = iota
	KindTick
	KindPause
	KindStop
	KindComplete
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindTick:
		return "tick"
	case KindPause:
		return "pause"
	case KindStop:
		return "stop"
	case KindComplete:
		return "complete"
	}
	return "unknown"
}

// Event 是计时器生命周期事件，按发生顺序在同一个通道上投递，每个事件只投递一次。
type Event struct {
	Kind      Kind
	Mode      Mode
	Total     time.Duration
	Remaining time.Duration
	Elapsed   time.Duration
	// CompletedFocus 是截至该事件完成的专注次数。
	CompletedFocus int
}

// State 是计时器状态快照。
type State struct {
	Mode           Mode
	Running        bool
	Paused         bool
	Total          time.Duration
	Remaining      time.Duration
	CompletedFocus int
}

var (
	// ErrRunning 在计时器已在运行时再次启动返回
	ErrRunning = errors.New("timer already running")
	// ErrInvalidDuration 拒绝非正数时长
	ErrInvalidDuration = errors.New("timer duration must be positive")
	// ErrClosed 在计时器关闭后调用返回
	ErrClosed = errors.New("timer closed")
)

// DefaultTick 是默认的倒计时步长。
const DefaultTick = time.Second

// Timer 是倒计时器。控制方法不会阻塞：事件先进入内部队列，再由单独的 goroutine 转发到 Events 通道。
type Timer struct {
	mu        sync.Mutex
	tick      time.Duration
	mode      Mode
	total     time.Duration
	remaining time.Duration
	running   bool
	paused    bool
	completed int
	gen       int
	halt      chan struct{}

	pending []Event
	closed  bool
	wake    chan struct{}
	events  chan Event
}

// Option 配置 Timer。
type Option func(*Timer)

// WithTick 设置倒计时步长，每个步长产生一次 tick 事件。
func WithTick(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.tick = d
		}
	}
}

// New 构造空闲状态的计时器，初始模式为专注。
func New(opts ...Option) *Timer {
	t := &Timer{
		tick:   DefaultTick,
		mode:   ModeFocus,
		wake:   make(chan struct{}, 1),
		events: make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(t)
	}
	go t.dispatch()
	return t
}

// Events 返回事件通道，Close 之后所有剩余事件投递完毕即关闭。
func (t *Timer) Events() <-chan Event {
	return t.events
}

// Start 以指定模式开始一次新的倒计时。
func (t *Timer) Start(mode Mode, d time.Duration) error {
	if _, ok := ParseMode(string(mode)); !ok {
		return fmt.Errorf("unknown timer mode %q", mode)
	}
	if d <= 0 {
		return ErrInvalidDuration
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.running {
		return ErrRunning
	}

	t.mode = mode
	t.total = d
	t.remaining = d
	t.paused = false
	t.launchLocked()
	return nil
}

// Pause 暂停正在运行的倒计时，未运行时返回 false。
func (t *Timer) Pause() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return false
	}
	t.haltLocked()
	t.paused = true
	t.emitLocked(KindPause)
	return true
}

// Resume 从暂停处继续倒计时。
func (t *Timer) Resume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || !t.paused || t.remaining <= 0 {
		return false
	}
	t.paused = false
	t.launchLocked()
	return true
}

// Stop 终止当前倒计时并丢弃剩余时间，空闲时返回 false。
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running && !t.paused {
		return false
	}
	if t.running {
		t.haltLocked()
	}
	t.paused = false
	t.emitLocked(KindStop)
	t.remaining = 0
	return true
}

// State 返回当前状态。
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Mode:           t.mode,
		Running:        t.running,
		Paused:         t.paused,
		Total:          t.total,
		Remaining:      t.remaining,
		CompletedFocus: t.completed,
	}
}

// Close 停止倒计时并在剩余事件投递完后关闭事件通道。
func (t *Timer) Close() {
	t.mu.Lock()
	if t.running {
		t.haltLocked()
	}
	t.paused = false
	t.closed = true
	t.mu.Unlock()
	t.signal()
}

// Shutdown 关闭计时器并丢弃未读事件，直到事件通道关闭。
// 用于事件消费者已经退出的场景，返回后投递 goroutine 已退出。
func (t *Timer) Shutdown() {
	t.Close()
	for range t.events {
	}
}

func (t *Timer) launchLocked() {
	t.gen++
	t.running = true
	t.halt = make(chan struct{})
	t.emitLocked(KindStart)
	go t.run(t.gen, t.halt)
}

func (t *Timer) haltLocked() {
	t.running = false
	t.gen++
	close(t.halt)
}

func (t *Timer) run(gen int, halt <-chan struct{}) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-halt:
			return
		case <-ticker.C:
			if done := t.step(gen); done {
				return
			}
		}
	}
}

// step 推进一个步长，返回本轮倒计时是否已结束。
func (t *Timer) step(gen int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || !t.running {
		return true
	}

	t.remaining -= t.tick
	if t.remaining < 0 {
		t.remaining = 0
	}
	t.emitLocked(KindTick)
	if t.remaining > 0 {
		return false
	}

	t.running = false
	t.gen++
	if t.mode == ModeFocus {
		t.completed++
	}
	t.emitLocked(KindComplete)
	return true
}

func (t *Timer) emitLocked(kind Kind) {
	t.pending = append(t.pending, Event{
		Kind:           kind,
		Mode:           t.mode,
		Total:          t.total,
		Remaining:      t.remaining,
		Elapsed:        t.total - t.remaining,
		CompletedFocus: t.completed,
	})
	t.signal()
}

func (t *Timer) signal() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Timer) dispatch() {
	defer close(t.events)
	for {
		t.mu.Lock()
		if len(t.pending) == 0 {
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return
			}
			<-t.wake
			continue
		}
		ev := t.pending[0]
		t.pending = t.pending[1:]
		t.mu.Unlock()

		t.events <- ev
	}
}

// FormatClock 把时长格式化为 MM:SS。
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
