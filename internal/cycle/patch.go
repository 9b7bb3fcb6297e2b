package cycle

import (
	"fmt"
	"math"
	"strings"
)

// SubjectSpec 定义新增科目时可配置的字段，零值表示使用默认值。
type SubjectSpec struct {
	Name        string
	Color       string
	Priority    int
	WeeklyHours float64
}

// SubjectPatch 描述科目的局部更新，nil 字段保持不变。ID 不可修改。
type SubjectPatch struct {
	Name               *string
	Color              *string
	Priority           *int
	WeeklyHours        *float64
	CurrentWeekMinutes *int
}

// CyclePatch 描述循环的局部更新，StudyDays 为 nil 时保持不变。
type CyclePatch struct {
	Name      *string
	StudyDays []Weekday
}

func (s SubjectSpec) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: subject name is required", ErrInvalidInput)
	}
	if s.Priority < 0 {
		return fmt.Errorf("%w: priority must be positive", ErrInvalidInput)
	}
	if !(s.WeeklyHours >= 0) || math.IsInf(s.WeeklyHours, 1) {
		return fmt.Errorf("%w: weekly hours must be positive", ErrInvalidInput)
	}
	return nil
}

func (p SubjectPatch) validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: subject name is required", ErrInvalidInput)
	}
	if p.Color != nil && strings.TrimSpace(*p.Color) == "" {
		return fmt.Errorf("%w: color must not be empty", ErrInvalidInput)
	}
	if p.Priority != nil && *p.Priority < 1 {
		return fmt.Errorf("%w: priority must be at least 1", ErrInvalidInput)
	}
	if p.WeeklyHours != nil && (!(*p.WeeklyHours > 0) || math.IsInf(*p.WeeklyHours, 1)) {
		return fmt.Errorf("%w: weekly hours must be positive", ErrInvalidInput)
	}
	if p.CurrentWeekMinutes != nil && *p.CurrentWeekMinutes < 0 {
		return ErrNegativeMinutes
	}
	return nil
}

func (p SubjectPatch) apply(s *Subject) {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.Color != nil {
		s.Color = strings.TrimSpace(*p.Color)
	}
	if p.Priority != nil {
		s.Priority = *p.Priority
	}
	if p.WeeklyHours != nil {
		s.WeeklyHours = *p.WeeklyHours
	}
	if p.CurrentWeekMinutes != nil {
		s.CurrentWeekMinutes = *p.CurrentWeekMinutes
	}
}

func (p CyclePatch) validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: cycle name is required", ErrInvalidInput)
	}
	if p.StudyDays != nil {
		if len(p.StudyDays) == 0 {
			return fmt.Errorf("%w: at least one study day is required", ErrInvalidInput)
		}
		if _, err := normalizeStudyDays(p.StudyDays); err != nil {
			return err
		}
	}
	return nil
}

func (p CyclePatch) apply(c *Cycle) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.StudyDays != nil {
		c.StudyDays, _ = normalizeStudyDays(p.StudyDays)
	}
}

// normalizeStudyDays 规范化并去重学习日，保持输入顺序。
func normalizeStudyDays(days []Weekday) ([]Weekday, error) {
	seen := make(map[Weekday]bool, len(days))
	out := make([]Weekday, 0, len(days))
	for _, raw := range days {
		day, ok := ParseWeekday(string(raw))
		if !ok {
			return nil, fmt.Errorf("%w: unknown study day %q", ErrInvalidInput, raw)
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, day)
	}
	return out, nil
}
