package app

import (
	"context"
	"sync"
	"time"

	"github.com/focuscycle/internal/cache"
	"github.com/focuscycle/internal/logger"
	"go.uber.org/zap"
)

// DateLayout 是每日统计使用的日期格式。
const DateLayout = "2006-01-02"

// DailyStats 是当日的专注统计，分钟为单位。
type DailyStats struct {
	Date              string `json:"date"`
	CompletedSessions int    `json:"completedSessions"`
	TotalFocusTime    int    `json:"totalFocusTime"`
	TotalBreakTime    int    `json:"totalBreakTime"`
}

// StatsMirror 是每日统计的远端写入能力，由 *cache.Remote 实现。
type StatsMirror interface {
	UpdateStats(ctx context.Context, date string, stats cache.RemoteStats) bool
}

// StatsBook 维护当日统计：跨日后自动从零开始，每次变更写入本地并异步上报远端。
type StatsBook struct {
	mu     sync.Mutex
	store  cache.KeyValue
	remote StatsMirror
	now    func() time.Time
	log    *zap.Logger
	wg     sync.WaitGroup

	pushMu sync.Mutex
	latest cache.RemoteStats
}

// NewStatsBook 构造 StatsBook，remote 与 now 可以为 nil。
func NewStatsBook(store cache.KeyValue, remote StatsMirror, now func() time.Time, log *zap.Logger) *StatsBook {
	if now == nil {
		now = time.Now
	}
	return &StatsBook{store: store, remote: remote, now: now, log: logger.OrNop(log)}
}

// Today 返回当日统计，存储中的日期不是今天时返回空统计。
func (b *StatsBook) Today() DailyStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.todayLocked()
}

// AddFocus 记录一次完成的专注。
func (b *StatsBook) AddFocus(minutes int) DailyStats {
	return b.update(func(s *DailyStats) {
		s.CompletedSessions++
		if minutes > 0 {
			s.TotalFocusTime += minutes
		}
	})
}

// AddBreak 累加休息分钟数。
func (b *StatsBook) AddBreak(minutes int) DailyStats {
	return b.update(func(s *DailyStats) {
		if minutes > 0 {
			s.TotalBreakTime += minutes
		}
	})
}

// Reset 清除本地保存的统计。
func (b *StatsBook) Reset() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Remove(cache.KeyStats)
}

// Wait 等待进行中的远端上报结束。
func (b *StatsBook) Wait() {
	b.wg.Wait()
}

func (b *StatsBook) todayLocked() DailyStats {
	today := b.now().Format(DateLayout)
	stats := cache.Load(b.store, cache.KeyStats, DailyStats{})
	if stats.Date != today {
		return DailyStats{Date: today}
	}
	return stats
}

func (b *StatsBook) update(mutate func(*DailyStats)) DailyStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := b.todayLocked()
	mutate(&stats)
	if !b.store.Save(cache.KeyStats, stats) {
		b.log.Warn("daily stats not saved locally", zap.String("date", stats.Date))
	}

	if b.remote != nil {
		b.latest = cache.RemoteStats{
			Date:              stats.Date,
			CompletedSessions: stats.CompletedSessions,
			TotalFocusTime:    stats.TotalFocusTime,
			TotalBreakTime:    stats.TotalBreakTime,
		}
		b.wg.Add(1)
		go b.push()
	}
	return stats
}

// push 总是上报最新的统计，旧快照不会覆盖新快照。
func (b *StatsBook) push() {
	defer b.wg.Done()
	b.pushMu.Lock()
	defer b.pushMu.Unlock()

	b.mu.Lock()
	payload := b.latest
	b.mu.Unlock()

	if !b.remote.UpdateStats(context.Background(), payload.Date, payload) {
		b.log.Debug("daily stats not mirrored", zap.String("date", payload.Date))
	}
}
