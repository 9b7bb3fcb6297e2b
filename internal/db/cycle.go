package db

import "time"

// Cycle 对应远端存储中的学习循环
// ID 由客户端生成并保持不变，服务端只做镜像
// StudyDays 以 JSON 数组保存，例如 ["mon","wed","fri"]
// IsActive 同一时刻只允许一个循环为 true
// CurrentSubjectIndex 由客户端维护，服务端原样保存
type Cycle struct {
	ID                  string   `gorm:"primaryKey;size:64"`
	Name                string   `gorm:"size:200;not null"`
	StudyDays           []string `gorm:"serializer:json"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
	WeekStartDate       time.Time
	IsActive            bool `gorm:"index"`
	CurrentSubjectIndex int
	Subjects            []Subject `gorm:"foreignKey:CycleID"`
}

// Subject 记录循环内的科目及其周配额
type Subject struct {
	ID                 string `gorm:"primaryKey;size:64"`
	CycleID            string `gorm:"index;size:64;not null"`
	Name               string `gorm:"size:200;not null"`
	WeeklyHours        float64
	Color              string `gorm:"size:32"`
	Priority           int
	CurrentWeekMinutes int
	TotalMinutes       int
	TotalSessions      int
	LastStudied        *time.Time
	Position           int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// StudySession 是只追加的学习记录，科目计数由客户端自行维护
type StudySession struct {
	ID          uint   `gorm:"primaryKey"`
	SubjectID   string `gorm:"index;size:64;not null"`
	Minutes     int
	StartedAt   time.Time
	CompletedAt time.Time `gorm:"index"`
	CreatedAt   time.Time
}

// DailyStat 保存某一天的番茄钟统计，Date 采用 2006-01-02
type DailyStat struct {
	ID                uint   `gorm:"primaryKey"`
	Date              string `gorm:"size:10;uniqueIndex;not null"`
	CompletedSessions int
	TotalFocusTime    int
	TotalBreakTime    int
	UpdatedAt         time.Time
}

// TableName 与历史库表名保持一致
func (StudySession) TableName() string {
	return "study_sessions"
}

// TableName 与历史库表名保持一致
func (DailyStat) TableName() string {
	return "stats"
}
