package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/focuscycle/internal/db"
	"gorm.io/gorm"
)

// ErrInvalidSession 当学习记录字段不合法时返回
var ErrInvalidSession = errors.New("invalid session payload")

// SessionService 负责只追加的学习记录
type SessionService struct {
	db *gorm.DB
}

// SessionInput 定义上报学习记录的字段
type SessionInput struct {
	SubjectID   string
	Minutes     int
	StartedAt   time.Time
	CompletedAt time.Time
}

// SessionRow 是导出时带科目名称的学习记录
type SessionRow struct {
	ID          uint      `json:"id"`
	SubjectID   string    `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	Minutes     int       `json:"minutes"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewSessionService 构造 SessionService
func NewSessionService(gdb *gorm.DB) *SessionService {
	return &SessionService{db: gdb}
}

// Create 追加一条学习记录，科目计数由客户端镜像维护，这里不做修改
func (s *SessionService) Create(input SessionInput) (*db.StudySession, error) {
	subjectID := strings.TrimSpace(input.SubjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("%w: subject_id is required", ErrInvalidSession)
	}
	if input.Minutes <= 0 {
		return nil, fmt.Errorf("%w: minutes must be positive", ErrInvalidSession)
	}

	completed := input.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}
	started := input.StartedAt
	if started.IsZero() {
		started = completed.Add(-time.Duration(input.Minutes) * time.Minute)
	}
	if completed.Before(started) {
		return nil, fmt.Errorf("%w: completed_at before started_at", ErrInvalidSession)
	}

	record := db.StudySession{
		SubjectID:   subjectID,
		Minutes:     input.Minutes,
		StartedAt:   started,
		CompletedAt: completed,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &record, nil
}

// List 按开始时间返回全部学习记录，科目已删除时名称为空
func (s *SessionService) List() ([]SessionRow, error) {
	var rows []SessionRow
	if err := s.db.Model(&db.StudySession{}).
		Select("study_sessions.id AS id, study_sessions.subject_id AS subject_id, COALESCE(subjects.name, '') AS subject_name, " +
			"study_sessions.minutes AS minutes, study_sessions.started_at AS started_at, study_sessions.completed_at AS completed_at").
		Joins("LEFT JOIN subjects ON subjects.id = study_sessions.subject_id").
		Order("study_sessions.started_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return rows, nil
}

// Totals 返回学习记录数与累计分钟数
func (s *SessionService) Totals() (count int64, minutes int64, err error) {
	var result struct {
		Count   int64
		Minutes int64
	}
	if err := s.db.Model(&db.StudySession{}).
		Select("COUNT(*) AS count, COALESCE(SUM(minutes), 0) AS minutes").
		Scan(&result).Error; err != nil {
		return 0, 0, fmt.Errorf("sum sessions: %w", err)
	}
	return result.Count, result.Minutes, nil
}
