package cycle

import (
	"strings"
	"time"
)

// Weekday 是学习日标记，取值 mon..sun。
type Weekday string

const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

const (
	// DefaultCycleName 是首次启动时自动创建的循环名称。
	DefaultCycleName = "My Study Cycle"
	// DefaultColor 是未指定颜色时的科目颜色。
	DefaultColor = "#3498db"
	// DefaultPriority 是未指定优先级时的科目优先级。
	DefaultPriority = 1
	// DefaultWeeklyHours 是未指定周目标时的小时数。
	DefaultWeeklyHours = 2.0
	// ExportVersion 是导入导出快照的格式版本。
	ExportVersion = "2.0"
)

var allWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// DefaultStudyDays 返回周一到周五。
func DefaultStudyDays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// ParseWeekday 规范化学习日标记，未知取值返回 false。
func ParseWeekday(raw string) (Weekday, bool) {
	token := Weekday(strings.ToLower(strings.TrimSpace(raw)))
	for _, day := range allWeekdays {
		if day == token {
			return day, true
		}
	}
	return "", false
}

// Cycle 是一组按顺序轮换的科目，并维护当前追踪周的起点。
type Cycle struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	StudyDays           []Weekday `json:"studyDays"`
	Subjects            []Subject `json:"subjects"`
	CurrentSubjectIndex int       `json:"currentSubjectIndex"`
	CreatedAt           time.Time `json:"createdAt"`
	WeekStartDate       time.Time `json:"weekStartDate"`
}

// Subject 是带有周配额的学习科目。
// CurrentWeekMinutes 在周切换时清零，TotalMinutes 永不清零。
type Subject struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Color              string     `json:"color"`
	Priority           int        `json:"priority"`
	WeeklyHours        float64    `json:"weeklyHours"`
	CurrentWeekMinutes int        `json:"currentWeekMinutes"`
	TotalSessions      int        `json:"totalSessions"`
	TotalMinutes       int        `json:"totalMinutes"`
	LastStudied        *time.Time `json:"lastStudied,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// Bundle 是写入本地缓存的完整学习循环数据。
type Bundle struct {
	Cycles        []Cycle `json:"cycles"`
	ActiveCycleID string  `json:"activeCycleId"`
}

// CycleSummary 用于列表展示。
type CycleSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Active        bool      `json:"active"`
	SubjectsCount int       `json:"subjectsCount"`
	StudyDays     []Weekday `json:"studyDays"`
	CreatedAt     time.Time `json:"createdAt"`
}

// QuotaState 描述科目本周配额的使用状态。
type QuotaState int

const (
	UnderQuota QuotaState = iota
	AtOrOverQuota
)

func (s QuotaState) String() string {
	if s == AtOrOverQuota {
		return "at_or_over_quota"
	}
	return "under_quota"
}

// SubjectStats 是科目的只读统计快照。
type SubjectStats struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Color              string     `json:"color"`
	Priority           int        `json:"priority"`
	WeeklyHours        float64    `json:"weeklyHours"`
	CurrentWeekMinutes int        `json:"currentWeekMinutes"`
	WeeklyProgress     float64    `json:"weeklyProgress"`
	RemainingMinutes   float64    `json:"remainingMinutes"`
	TotalSessions      int        `json:"totalSessions"`
	TotalMinutes       int        `json:"totalMinutes"`
	TotalHours         int        `json:"totalHours"`
	LastStudied        *time.Time `json:"lastStudied,omitempty"`
}

// Snapshot 是导出文件的版本化结构。
type Snapshot struct {
	Version    string    `json:"version"`
	Cycle      Cycle     `json:"cycle"`
	ExportDate time.Time `json:"exportDate"`
}

func (c *Cycle) subjectIndex(subjectID string) int {
	for i := range c.Subjects {
		if c.Subjects[i].ID == subjectID {
			return i
		}
	}
	return -1
}

// clampIndex 保证 0 <= CurrentSubjectIndex < len(Subjects)，无科目时为 0。
func (c *Cycle) clampIndex() {
	if c.CurrentSubjectIndex < 0 || c.CurrentSubjectIndex >= len(c.Subjects) {
		c.CurrentSubjectIndex = 0
	}
}

func (c Cycle) clone() Cycle {
	out := c
	out.StudyDays = append([]Weekday(nil), c.StudyDays...)
	out.Subjects = make([]Subject, len(c.Subjects))
	for i, subject := range c.Subjects {
		out.Subjects[i] = subject.clone()
	}
	return out
}

func (s Subject) clone() Subject {
	out := s
	if s.LastStudied != nil {
		studied := *s.LastStudied
		out.LastStudied = &studied
	}
	return out
}
