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
	// ErrSubjectNotFound 在指定科目不存在时返回
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrInvalidSubject 当科目字段不合法时返回
	ErrInvalidSubject = errors.New("invalid subject payload")
)

const defaultSubjectColor = "#3498db"

// SubjectService 负责科目的幂等写入与删除
type SubjectService struct {
	db *gorm.DB
}

// SubjectInput 定义创建或更新科目时的字段
type SubjectInput struct {
	ID                 string
	CycleID            string
	Name               string
	WeeklyHours        float64
	Color              string
	Priority           int
	CurrentWeekMinutes int
	TotalMinutes       int
	TotalSessions      int
	LastStudied        *time.Time
	Position           int
	CreatedAt          *time.Time
}

// NewSubjectService 构造 SubjectService
func NewSubjectService(gdb *gorm.DB) *SubjectService {
	return &SubjectService{db: gdb}
}

// Get 根据 ID 获取科目
func (s *SubjectService) Get(id string) (*db.Subject, error) {
	var subject db.Subject
	if err := s.db.Where("id = ?", id).First(&subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return &subject, nil
}

// List 返回全部科目
func (s *SubjectService) List() ([]db.Subject, error) {
	var subjects []db.Subject
	if err := s.db.Order("cycle_id ASC, position ASC").Find(&subjects).Error; err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// Upsert 按 ID 创建或覆盖科目，所属循环必须已存在
func (s *SubjectService) Upsert(input SubjectInput) (*db.Subject, error) {
	record, err := buildSubject(input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(record.CycleID) == "" {
		return nil, fmt.Errorf("%w: cycle_id is required", ErrInvalidSubject)
	}

	var count int64
	if err := s.db.Model(&db.Cycle{}).Where("id = ?", record.CycleID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("find cycle: %w", err)
	}
	if count == 0 {
		return nil, ErrCycleNotFound
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cycle_id", "name", "weekly_hours", "color", "priority",
			"current_week_minutes", "total_minutes", "total_sessions",
			"last_studied", "position", "updated_at",
		}),
	}).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("upsert subject: %w", err)
	}

	return s.Get(record.ID)
}

// Update 覆盖已有科目的可变字段，CycleID 为空时保持原所属循环
func (s *SubjectService) Update(id string, input SubjectInput) (*db.Subject, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	input.ID = id
	if strings.TrimSpace(input.CycleID) == "" {
		input.CycleID = existing.CycleID
	}
	record, err := buildSubject(input)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&db.Subject{ID: id}).
		Select("cycle_id", "name", "weekly_hours", "color", "priority", "current_week_minutes", "total_minutes", "total_sessions", "last_studied", "position", "updated_at").
		Updates(&record).Error; err != nil {
		return nil, fmt.Errorf("update subject: %w", err)
	}
	return s.Get(id)
}

// Delete 删除科目
func (s *SubjectService) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&db.Subject{})
	if result.Error != nil {
		return fmt.Errorf("delete subject: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSubjectNotFound
	}
	return nil
}

// Count 返回科目总数
func (s *SubjectService) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&db.Subject{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}
	return count, nil
}

func buildSubject(input SubjectInput) (db.Subject, error) {
	id := strings.TrimSpace(input.ID)
	name := sanitizeName(input.Name)
	switch {
	case id == "":
		return db.Subject{}, fmt.Errorf("%w: id is required", ErrInvalidSubject)
	case name == "":
		return db.Subject{}, fmt.Errorf("%w: name is required", ErrInvalidSubject)
	case input.WeeklyHours < 0:
		return db.Subject{}, fmt.Errorf("%w: weekly hours must not be negative", ErrInvalidSubject)
	case input.CurrentWeekMinutes < 0 || input.TotalMinutes < 0 || input.TotalSessions < 0:
		return db.Subject{}, fmt.Errorf("%w: counters must not be negative", ErrInvalidSubject)
	}

	record := db.Subject{
		ID:                 id,
		CycleID:            strings.TrimSpace(input.CycleID),
		Name:               name,
		WeeklyHours:        input.WeeklyHours,
		Color:              strings.TrimSpace(input.Color),
		Priority:           input.Priority,
		CurrentWeekMinutes: input.CurrentWeekMinutes,
		TotalMinutes:       input.TotalMinutes,
		TotalSessions:      input.TotalSessions,
		LastStudied:        input.LastStudied,
		Position:           input.Position,
	}
	if record.Color == "" {
		record.Color = defaultSubjectColor
	}
	if record.Priority < 1 {
		record.Priority = 1
	}
	if input.CreatedAt != nil {
		record.CreatedAt = *input.CreatedAt
	}
	return record, nil
}
