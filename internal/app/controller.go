package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/focuscycle/internal/cycle"
	"github.com/focuscycle/internal/logger"
	"github.com/focuscycle/internal/timer"
	"go.uber.org/zap"
)

// ErrQuotaReached 表示当前科目本周目标已完成，不能再开始专注。
var ErrQuotaReached = errors.New("weekly quota reached for current subject")

// StudyCycles 是控制器需要的学习循环能力，由 *cycle.Repository 实现。
type StudyCycles interface {
	CurrentSubject() (*cycle.Subject, bool)
	HasTimeAvailable(subjectID string) bool
	RecordSession(subjectID string, minutes int) error
	Advance() (*cycle.Subject, error)
}

// Completion 描述一个阶段结束后控制器做了什么。
type Completion struct {
	Mode    timer.Mode
	Minutes int
	// Subject 是本次专注计入的科目，休息或没有科目时为 nil。
	Subject     *cycle.Subject
	Upcoming    *cycle.Subject
	Next        timer.Mode
	AutoStarted bool
	Stats       DailyStats
}

// Controller 把计时器事件接到学习循环与每日统计上。
type Controller struct {
	cycles   StudyCycles
	timer    *timer.Timer
	stats    *StatsBook
	settings Settings
	unit     time.Duration
	notify   func(Completion)
	log      *zap.Logger
}

// ControllerOption 配置 Controller。
type ControllerOption func(*Controller)

// WithMinute 设置“一分钟”的实际时长，测试中用毫秒级单位加速。
func WithMinute(unit time.Duration) ControllerOption {
	return func(c *Controller) {
		if unit > 0 {
			c.unit = unit
		}
	}
}

// WithNotifier 在每个阶段结束后回调。
func WithNotifier(fn func(Completion)) ControllerOption {
	return func(c *Controller) {
		c.notify = fn
	}
}

// WithControllerLogger 注入日志实例。
func WithControllerLogger(l *zap.Logger) ControllerOption {
	return func(c *Controller) {
		c.log = logger.OrNop(l)
	}
}

// NewController 构造控制器。
func NewController(cycles StudyCycles, t *timer.Timer, stats *StatsBook, settings Settings, opts ...ControllerOption) *Controller {
	c := &Controller{
		cycles:   cycles,
		timer:    t,
		stats:    stats,
		settings: settings,
		unit:     time.Minute,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start 以设置中的时长启动指定阶段。
// 专注阶段要求当前科目仍有剩余配额，否则返回 ErrQuotaReached；没有科目时照常计时。
func (c *Controller) Start(mode timer.Mode) error {
	if mode == timer.ModeFocus {
		if subject, ok := c.cycles.CurrentSubject(); ok && !c.cycles.HasTimeAvailable(subject.ID) {
			return fmt.Errorf("%w: %s", ErrQuotaReached, subject.Name)
		}
	}
	return c.timer.Start(mode, c.settings.Duration(mode, c.unit))
}

// StartFocus 启动一次专注。
func (c *Controller) StartFocus() error {
	return c.Start(timer.ModeFocus)
}

// Run 消费计时器事件直到 ctx 结束或事件通道关闭。
func (c *Controller) Run(ctx context.Context) error {
	events := c.timer.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev timer.Event) {
	switch ev.Kind {
	case timer.KindStart:
		c.log.Debug("timer started", zap.String("mode", string(ev.Mode)), zap.Duration("remaining", ev.Remaining))
	case timer.KindPause, timer.KindStop:
		c.log.Debug("timer interrupted", zap.String("event", ev.Kind.String()), zap.Duration("elapsed", ev.Elapsed))
	case timer.KindComplete:
		c.complete(ev)
	}
}

func (c *Controller) complete(ev timer.Event) {
	minutes := c.settings.Minutes(ev.Mode)
	out := Completion{Mode: ev.Mode, Minutes: minutes}

	if ev.Mode == timer.ModeFocus {
		out.Stats = c.stats.AddFocus(minutes)
		out.Subject, out.Upcoming = c.credit(minutes)
	} else {
		out.Stats = c.stats.AddBreak(minutes)
	}

	out.Next = c.settings.NextMode(ev.Mode, ev.CompletedFocus)
	if c.settings.ShouldAutoStart(ev.Mode) {
		if err := c.Start(out.Next); err != nil {
			c.log.Warn("auto start failed", zap.String("mode", string(out.Next)), zap.Error(err))
		} else {
			out.AutoStarted = true
		}
	}

	c.log.Info("timer phase completed",
		zap.String("mode", string(ev.Mode)),
		zap.Int("minutes", minutes),
		zap.String("next", string(out.Next)),
	)
	if c.notify != nil {
		c.notify(out)
	}
}

// credit 把专注计入当前科目并轮换到下一个科目。
func (c *Controller) credit(minutes int) (*cycle.Subject, *cycle.Subject) {
	subject, ok := c.cycles.CurrentSubject()
	if !ok {
		return nil, nil
	}
	if err := c.cycles.RecordSession(subject.ID, minutes); err != nil {
		c.log.Warn("session not recorded", zap.String("subject_id", subject.ID), zap.Error(err))
		return nil, nil
	}

	upcoming, err := c.cycles.Advance()
	if err != nil && !errors.Is(err, cycle.ErrNoSubjects) {
		c.log.Warn("rotation not advanced", zap.Error(err))
	}
	return subject, upcoming
}
