package cache

import (
	"encoding/json"
	"time"
)

// RemoteCycle 是远端接口中的循环记录，部分字段使用 snake_case。
type RemoteCycle struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	StudyDays           []string        `json:"study_days"`
	CreatedAt           time.Time       `json:"created_at"`
	WeekStartDate       time.Time       `json:"week_start_date"`
	IsActive            bool            `json:"is_active"`
	CurrentSubjectIndex int             `json:"current_subject_index"` // 按 position 顺序计
	Subjects            []RemoteSubject `json:"subjects,omitempty"`
}

// CycleUpdate 是 PUT /cycles/{id} 的请求体。
type CycleUpdate struct {
	Name          string     `json:"name"`
	StudyDays     []string   `json:"study_days"`
	WeekStartDate *time.Time `json:"week_start_date,omitempty"`
}

// RemoteSubject 是远端接口中的科目记录。
// 写入时沿用 camelCase，读取时同时兼容 snake_case 拼写。
type RemoteSubject struct {
	ID                 string     `json:"id"`
	CycleID            string     `json:"cycle_id"`
	Name               string     `json:"name"`
	WeeklyHours        float64    `json:"weeklyHours"`
	Color              string     `json:"color"`
	Priority           int        `json:"priority"`
	CurrentWeekMinutes int        `json:"currentWeekMinutes"`
	TotalMinutes       int        `json:"totalMinutes"`
	TotalSessions      int        `json:"totalSessions"`
	LastStudied        *time.Time `json:"lastStudied,omitempty"`
	CreatedAt          *time.Time `json:"createdAt,omitempty"`
	Position           int        `json:"position"`
}

// UnmarshalJSON 在 camelCase 字段缺失时回退到 snake_case 字段。
func (s *RemoteSubject) UnmarshalJSON(data []byte) error {
	type plain RemoteSubject
	var aux struct {
		plain
		WeeklyHoursSnake        *float64   `json:"weekly_hours"`
		CurrentWeekMinutesSnake *int       `json:"current_week_minutes"`
		TotalMinutesSnake       *int       `json:"total_minutes"`
		TotalSessionsSnake      *int       `json:"total_sessions"`
		LastStudiedSnake        *time.Time `json:"last_studied"`
		CreatedAtSnake          *time.Time `json:"created_at"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	out := RemoteSubject(aux.plain)
	if out.WeeklyHours == 0 && aux.WeeklyHoursSnake != nil {
		out.WeeklyHours = *aux.WeeklyHoursSnake
	}
	if out.CurrentWeekMinutes == 0 && aux.CurrentWeekMinutesSnake != nil {
		out.CurrentWeekMinutes = *aux.CurrentWeekMinutesSnake
	}
	if out.TotalMinutes == 0 && aux.TotalMinutesSnake != nil {
		out.TotalMinutes = *aux.TotalMinutesSnake
	}
	if out.TotalSessions == 0 && aux.TotalSessionsSnake != nil {
		out.TotalSessions = *aux.TotalSessionsSnake
	}
	if out.LastStudied == nil {
		out.LastStudied = aux.LastStudiedSnake
	}
	if out.CreatedAt == nil {
		out.CreatedAt = aux.CreatedAtSnake
	}

	*s = out
	return nil
}

// SessionRecord 是 POST /sessions 的请求体。
type SessionRecord struct {
	SubjectID   string    `json:"subject_id"`
	Minutes     int       `json:"minutes"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// RemoteStats 是 /stats/{date} 的读写结构。
type RemoteStats struct {
	Date              string `json:"date,omitempty"`
	CompletedSessions int    `json:"completedSessions"`
	TotalFocusTime    int    `json:"totalFocusTime"`
	TotalBreakTime    int    `json:"totalBreakTime"`
}
