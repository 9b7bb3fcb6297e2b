package app

import (
	"fmt"
	"time"

	"github.com/focuscycle/internal/logger"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// WeekResetter 是周切换检查能力，由 *cycle.Repository 实现。
type WeekResetter interface {
	CheckWeekReset() bool
}

// Scheduler 每天本地时间 00:00 执行一次周切换检查，长时间运行的进程跨过周一也能清零本周进度。
type Scheduler struct {
	cron   *gocron.Scheduler
	cycles WeekResetter
	log    *zap.Logger
}

// NewScheduler 构造调度器，loc 为 nil 时使用本地时区。
func NewScheduler(cycles WeekResetter, loc *time.Location, log *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:   gocron.NewScheduler(loc),
		cycles: cycles,
		log:    logger.OrNop(log),
	}
}

// Start 注册任务并以非阻塞方式启动。
func (s *Scheduler) Start() error {
	if _, err := s.cron.Every(1).Day().At("00:00").Do(s.checkWeek); err != nil {
		return fmt.Errorf("schedule week reset: %w", err)
	}
	s.cron.StartAsync()
	return nil
}

// Stop 停止所有任务。
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// NextRun 返回下一次检查的时间。
func (s *Scheduler) NextRun() time.Time {
	_, next := s.cron.NextRun()
	return next
}

func (s *Scheduler) checkWeek() {
	if s.cycles.CheckWeekReset() {
		s.log.Info("scheduled week reset applied")
		return
	}
	s.log.Debug("scheduled week check: nothing to reset")
}
