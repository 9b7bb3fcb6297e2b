package cycle

import "math"

// 以下查询均针对激活循环，科目不存在时返回零值。

// HasTimeAvailable 判断科目是否仍未达到本周目标。
func (r *Repository) HasTimeAvailable(subjectID string) bool {
	s, ok := r.activeSubject(subjectID)
	if !ok {
		return false
	}
	return quotaOf(s) == UnderQuota
}

// RemainingMinutes 返回本周剩余可学习分钟数，不小于 0。
func (r *Repository) RemainingMinutes(subjectID string) float64 {
	s, ok := r.activeSubject(subjectID)
	if !ok {
		return 0
	}
	return remainingOf(s)
}

// WeeklyProgress 返回本周进度百分比，范围 [0, 100]。
func (r *Repository) WeeklyProgress(subjectID string) float64 {
	s, ok := r.activeSubject(subjectID)
	if !ok {
		return 0
	}
	return progressOf(s)
}

// QuotaState 返回科目当前的配额状态。
func (r *Repository) QuotaState(subjectID string) (QuotaState, bool) {
	s, ok := r.activeSubject(subjectID)
	if !ok {
		return UnderQuota, false
	}
	return quotaOf(s), true
}

// SubjectStats 汇总科目的配额与累计数据。
func (r *Repository) SubjectStats(subjectID string) (SubjectStats, bool) {
	s, ok := r.activeSubject(subjectID)
	if !ok {
		return SubjectStats{}, false
	}
	return statsOf(s), true
}

// AllStats 按存储顺序返回激活循环所有科目的统计。
func (r *Repository) AllStats() []SubjectStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.findCycleLocked(r.activeID)
	if c == nil {
		return []SubjectStats{}
	}
	items := make([]SubjectStats, 0, len(c.Subjects))
	for _, s := range c.Subjects {
		items = append(items, statsOf(s.clone()))
	}
	return items
}

func (r *Repository) activeSubject(subjectID string) (Subject, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.subjectLocked(r.findCycleLocked(r.activeID), subjectID)
	if s == nil {
		return Subject{}, false
	}
	return s.clone(), true
}

func weeklyTarget(s Subject) float64 {
	return s.WeeklyHours * 60
}

func quotaOf(s Subject) QuotaState {
	if float64(s.CurrentWeekMinutes) < weeklyTarget(s) {
		return UnderQuota
	}
	return AtOrOverQuota
}

func remainingOf(s Subject) float64 {
	return math.Max(0, weeklyTarget(s)-float64(s.CurrentWeekMinutes))
}

// progressOf 在周目标为 0 时视为已完成，返回 100。
func progressOf(s Subject) float64 {
	target := weeklyTarget(s)
	if target <= 0 {
		return 100
	}
	return math.Min(100, float64(s.CurrentWeekMinutes)/target*100)
}

func statsOf(s Subject) SubjectStats {
	return SubjectStats{
		ID:                 s.ID,
		Name:               s.Name,
		Color:              s.Color,
		Priority:           s.Priority,
		WeeklyHours:        s.WeeklyHours,
		CurrentWeekMinutes: s.CurrentWeekMinutes,
		WeeklyProgress:     progressOf(s),
		RemainingMinutes:   remainingOf(s),
		TotalSessions:      s.TotalSessions,
		TotalMinutes:       s.TotalMinutes,
		TotalHours:         s.TotalMinutes / 60,
		LastStudied:        s.LastStudied,
	}
}
