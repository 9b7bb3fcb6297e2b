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
	// ErrCycleNotFound 在指定循环不存在时返回
	ErrCycleNotFound = errors.New("cycle not found")
	// ErrInvalidCycle 当循环字段不合法时返回
	ErrInvalidCycle = errors.New("invalid cycle payload")
)

// CycleService 负责远端镜像中循环数据的读写
// ID 由客户端生成，创建接口按 ID 幂等覆盖
// 同一时刻最多一个循环处于激活状态
type CycleService struct {
	db *gorm.DB
}

// CycleInput 定义创建（覆盖）循环时的字段
type CycleInput struct {
	ID                  string
	Name                string
	StudyDays           []string
	CreatedAt           time.Time
	WeekStartDate       time.Time
	IsActive            bool
	CurrentSubjectIndex int // 小于 0 时按 0 保存
}

// CycleUpdateInput 定义更新循环时可修改的字段
type CycleUpdateInput struct {
	Name          string
	StudyDays     []string
	WeekStartDate *time.Time
}

// NewCycleService 构造 CycleService
func NewCycleService(gdb *gorm.DB) *CycleService {
	return &CycleService{db: gdb}
}

func preloadSubjects(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC, created_at ASC")
}

// List 返回全部循环（含科目），按创建时间排序
func (s *CycleService) List() ([]db.Cycle, error) {
	var cycles []db.Cycle
	if err := s.db.Preload("Subjects", preloadSubjects).Order("created_at ASC").Find(&cycles).Error; err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	return cycles, nil
}

// Get 根据 ID 获取循环
func (s *CycleService) Get(id string) (*db.Cycle, error) {
	var cycle db.Cycle
	if err := s.db.Preload("Subjects", preloadSubjects).Where("id = ?", id).First(&cycle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("get cycle: %w", err)
	}
	return &cycle, nil
}

// Active 返回当前激活的循环，没有时返回 ErrCycleNotFound
func (s *CycleService) Active() (*db.Cycle, error) {
	var cycle db.Cycle
	if err := s.db.Preload("Subjects", preloadSubjects).Where("is_active = ?", true).First(&cycle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCycleNotFound
		}
		return nil, fmt.Errorf("get active cycle: %w", err)
	}
	return &cycle, nil
}

// Upsert 按 ID 创建或覆盖循环；IsActive 为 true 时同时取消其他循环的激活状态
func (s *CycleService) Upsert(input CycleInput) (*db.Cycle, error) {
	id := strings.TrimSpace(input.ID)
	name := sanitizeName(input.Name)
	if id == "" || name == "" {
		return nil, fmt.Errorf("%w: id and name are required", ErrInvalidCycle)
	}

	record := db.Cycle{
		ID:            id,
		Name:          name,
		StudyDays:     normalizeDays(input.StudyDays),
		CreatedAt:     input.CreatedAt,
		WeekStartDate: input.WeekStartDate,
		IsActive:      input.IsActive,
	}
	if input.CurrentSubjectIndex > 0 {
		record.CurrentSubjectIndex = input.CurrentSubjectIndex
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if record.IsActive {
			if err := tx.Model(&db.Cycle{}).Where("id <> ?", id).Update("is_active", false).Error; err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "study_days", "week_start_date", "is_active", "current_subject_index", "updated_at"}),
		}).Omit("Subjects").Create(&record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert cycle: %w", err)
	}

	return s.Get(id)
}

// Update 修改循环名称、学习日与周起点
func (s *CycleService) Update(id string, input CycleUpdateInput) (*db.Cycle, error) {
	name := sanitizeName(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCycle)
	}

	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	changes := db.Cycle{
		Name:          name,
		StudyDays:     normalizeDays(input.StudyDays),
		WeekStartDate: existing.WeekStartDate,
	}
	if input.WeekStartDate != nil {
		changes.WeekStartDate = *input.WeekStartDate
	}

	if err := s.db.Model(&db.Cycle{ID: id}).
		Select("name", "study_days", "week_start_date", "updated_at").
		Updates(&changes).Error; err != nil {
		return nil, fmt.Errorf("update cycle: %w", err)
	}
	return s.Get(id)
}

// Delete 删除循环及其科目
func (s *CycleService) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&db.Cycle{})
		if result.Error != nil {
			return fmt.Errorf("delete cycle: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrCycleNotFound
		}
		if err := tx.Where("cycle_id = ?", id).Delete(&db.Subject{}).Error; err != nil {
			return fmt.Errorf("delete cycle subjects: %w", err)
		}
		return nil
	})
}

// Activate 激活指定循环并取消其他循环的激活状态
func (s *CycleService) Activate(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Cycle{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("find cycle: %w", err)
		}
		if count == 0 {
			return ErrCycleNotFound
		}
		if err := tx.Model(&db.Cycle{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("deactivate cycles: %w", err)
		}
		if err := tx.Model(&db.Cycle{}).Where("id = ?", id).Update("is_active", true).Error; err != nil {
			return fmt.Errorf("activate cycle: %w", err)
		}
		return nil
	})
}

// ResetWeek 清零循环下所有科目的本周分钟数
func (s *CycleService) ResetWeek(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.db.Model(&db.Subject{}).Where("cycle_id = ?", id).Update("current_week_minutes", 0).Error; err != nil {
		return fmt.Errorf("reset week: %w", err)
	}
	return nil
}

// Count 返回循环总数
func (s *CycleService) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&db.Cycle{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count cycles: %w", err)
	}
	return count, nil
}

func normalizeDays(days []string) []string {
	out := make([]string, 0, len(days))
	seen := make(map[string]bool, len(days))
	for _, raw := range days {
		day := strings.ToLower(strings.TrimSpace(raw))
		if day == "" || seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, day)
	}
	return out
}
