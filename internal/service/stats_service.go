package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/focuscycle/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrInvalidDate 当日期不是 2006-01-02 格式时返回
	ErrInvalidDate = errors.New("invalid stats date")
	// ErrInvalidStats 当统计数值为负时返回
	ErrInvalidStats = errors.New("invalid stats payload")
)

const statsDateLayout = "2006-01-02"

// StatsService 负责每日统计与汇总
type StatsService struct {
	db       *gorm.DB
	sessions *SessionService
	subjects *SubjectService
	cycles   *CycleService
}

// StatsInput 定义每日统计的可写字段
type StatsInput struct {
	CompletedSessions int
	TotalFocusTime    int
	TotalBreakTime    int
}

// GeneralStats 是全部数据的汇总
type GeneralStats struct {
	TotalSessions int64   `json:"totalSessions"`
	TotalMinutes  int64   `json:"totalMinutes"`
	TotalHours    float64 `json:"totalHours"`
	TotalSubjects int64   `json:"totalSubjects"`
	TotalCycles   int64   `json:"totalCycles"`
	ActiveCycleID string  `json:"activeCycleId,omitempty"`
}

// NewStatsService 构造 StatsService
func NewStatsService(gdb *gorm.DB) *StatsService {
	return &StatsService{
		db:       gdb,
		sessions: NewSessionService(gdb),
		subjects: NewSubjectService(gdb),
		cycles:   NewCycleService(gdb),
	}
}

// Get 读取某天的统计，不存在时创建空记录
func (s *StatsService) Get(date string) (*db.DailyStat, error) {
	date, err := normalizeStatsDate(date)
	if err != nil {
		return nil, err
	}

	record := db.DailyStat{Date: date}
	if err := s.db.Where(db.DailyStat{Date: date}).FirstOrCreate(&record).Error; err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &record, nil
}

// Update 覆盖某天的统计
func (s *StatsService) Update(date string, input StatsInput) (*db.DailyStat, error) {
	date, err := normalizeStatsDate(date)
	if err != nil {
		return nil, err
	}
	if input.CompletedSessions < 0 || input.TotalFocusTime < 0 || input.TotalBreakTime < 0 {
		return nil, fmt.Errorf("%w: counters must not be negative", ErrInvalidStats)
	}

	record := db.DailyStat{
		Date:              date,
		CompletedSessions: input.CompletedSessions,
		TotalFocusTime:    input.TotalFocusTime,
		TotalBreakTime:    input.TotalBreakTime,
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed_sessions", "total_focus_time", "total_break_time", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("update stats: %w", err)
	}

	return s.Get(date)
}

// General 汇总学习记录、科目与循环数量
func (s *StatsService) General() (*GeneralStats, error) {
	count, minutes, err := s.sessions.Totals()
	if err != nil {
		return nil, err
	}
	subjects, err := s.subjects.Count()
	if err != nil {
		return nil, err
	}
	cycles, err := s.cycles.Count()
	if err != nil {
		return nil, err
	}

	stats := &GeneralStats{
		TotalSessions: count,
		TotalMinutes:  minutes,
		TotalHours:    float64(minutes) / 60,
		TotalSubjects: subjects,
		TotalCycles:   cycles,
	}
	if active, err := s.cycles.Active(); err == nil {
		stats.ActiveCycleID = active.ID
	} else if !errors.Is(err, ErrCycleNotFound) {
		return nil, err
	}
	return stats, nil
}

func normalizeStatsDate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := time.Parse(statsDateLayout, trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidDate, raw)
	}
	return parsed.Format(statsDateLayout), nil
}
