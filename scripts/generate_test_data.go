package main

import (
	"fmt"
	"log"
	"time"

	"github.com/focuscycle/internal/config"
	"github.com/focuscycle/internal/cycle"
	"github.com/focuscycle/internal/db"
	"github.com/focuscycle/internal/service"
)

const (
	demoCycleID  = "demo-cycle"
	demoFinalsID = "demo-finals"
)

// 测试数据生成器
func main() {
	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	// 创建学习循环与科目
	createDemoCycles()

	// 创建最近两周的学习记录
	createDemoSessions(time.Now())

	// 创建每日统计
	createDemoStats(time.Now())

	fmt.Println("测试数据生成完成！")
	fmt.Println("循环: 工作日循环（激活）、期末冲刺")
	fmt.Println("科目: 数学、物理、英语、化学")
}

type demoSubject struct {
	id     string
	name   string
	hours  float64
	color  string
	weekly int
}

var demoSubjects = []demoSubject{
	{id: "demo-math", name: "数学", hours: 6, color: "#e74c3c", weekly: 150},
	{id: "demo-physics", name: "物理", hours: 4, color: "#3498db", weekly: 90},
	{id: "demo-english", name: "英语", hours: 3, color: "#2ecc71", weekly: 180},
}

// 创建学习循环
func createDemoCycles() {
	cycles := service.NewCycleService(db.DB)
	subjects := service.NewSubjectService(db.DB)

	count, err := cycles.Count()
	if err != nil {
		log.Printf("统计循环失败: %v", err)
		return
	}
	if count > 0 {
		fmt.Println("循环已存在，跳过创建")
		return
	}

	weekStart := cycle.WeekStart(time.Now())
	if _, err := cycles.Upsert(service.CycleInput{
		ID:            demoCycleID,
		Name:          "工作日循环",
		StudyDays:     []string{"mon", "tue", "wed", "thu", "fri"},
		WeekStartDate: weekStart,
		IsActive:      true,
	}); err != nil {
		log.Printf("创建循环失败: %v", err)
		return
	}
	for i, s := range demoSubjects {
		if _, err := subjects.Upsert(service.SubjectInput{
			ID:                 s.id,
			CycleID:            demoCycleID,
			Name:               s.name,
			WeeklyHours:        s.hours,
			Color:              s.color,
			Priority:           i + 1,
			CurrentWeekMinutes: s.weekly,
			TotalMinutes:       s.weekly * 3,
			TotalSessions:      s.weekly / 25 * 3,
			Position:           i,
		}); err != nil {
			log.Printf("创建科目失败: %v", err)
		}
	}

	if _, err := cycles.Upsert(service.CycleInput{
		ID:            demoFinalsID,
		Name:          "期末冲刺",
		StudyDays:     []string{"sat", "sun"},
		WeekStartDate: weekStart,
	}); err != nil {
		log.Printf("创建循环失败: %v", err)
		return
	}
	if _, err := subjects.Upsert(service.SubjectInput{
		ID:          "demo-chemistry",
		CycleID:     demoFinalsID,
		Name:        "化学",
		WeeklyHours: 1.5,
		Color:       "#9b59b6",
	}); err != nil {
		log.Printf("创建科目失败: %v", err)
	}

	fmt.Println("✅ 学习循环创建完成")
}

// 创建学习记录，每个工作日每科一到两个番茄钟
func createDemoSessions(now time.Time) {
	sessions := service.NewSessionService(db.DB)

	existing, _, err := sessions.Totals()
	if err != nil {
		log.Printf("统计学习记录失败: %v", err)
		return
	}
	if existing > 0 {
		fmt.Println("学习记录已存在，跳过创建")
		return
	}

	created := 0
	for day := 13; day >= 0; day-- {
		date := now.AddDate(0, 0, -day)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}
		start := time.Date(date.Year(), date.Month(), date.Day(), 9, 0, 0, 0, date.Location())
		for i, s := range demoSubjects {
			rounds := 1 + (day+i)%2
			for r := 0; r < rounds; r++ {
				if _, err := sessions.Create(service.SessionInput{
					SubjectID:   s.id,
					Minutes:     25,
					StartedAt:   start,
					CompletedAt: start.Add(25 * time.Minute),
				}); err != nil {
					log.Printf("创建学习记录失败: %v", err)
					continue
				}
				created++
				start = start.Add(30 * time.Minute)
			}
		}
	}

	fmt.Printf("✅ 学习记录创建完成，共 %d 条\n", created)
}

// 创建最近一周的每日统计
func createDemoStats(now time.Time) {
	stats := service.NewStatsService(db.DB)
	for day := 6; day >= 0; day-- {
		date := now.AddDate(0, 0, -day).Format("2006-01-02")
		sessions := 4 + day%3
		if _, err := stats.Update(date, service.StatsInput{
			CompletedSessions: sessions,
			TotalFocusTime:    sessions * 25,
			TotalBreakTime:    sessions * 5,
		}); err != nil {
			log.Printf("创建统计失败: %v", err)
		}
	}
	fmt.Println("✅ 每日统计创建完成")
}
