package handler

import (
	"net/http"

	"github.com/focuscycle/internal/cache"
	"github.com/focuscycle/internal/db"
	"github.com/focuscycle/internal/service"
	"github.com/gin-gonic/gin"
)

// CreateSession 追加一条学习记录
func (a *API) CreateSession(c *gin.Context) {
	var payload cache.SessionRecord
	if !bindJSON(c, &payload, "学习记录格式错误") {
		return
	}

	record, err := a.sessions.Create(service.SessionInput{
		SubjectID:   payload.SubjectID,
		Minutes:     payload.Minutes,
		StartedAt:   payload.StartedAt,
		CompletedAt: payload.CompletedAt,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": record.ID})
}

// GetGeneralStats 返回累计学习数据
func (a *API) GetGeneralStats(c *gin.Context) {
	stats, err := a.stats.General()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetDailyStats 返回某天的番茄钟统计
func (a *API) GetDailyStats(c *gin.Context) {
	record, err := a.stats.Get(c.Param("date"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsToPayload(*record))
}

// UpdateDailyStats 覆盖某天的番茄钟统计
func (a *API) UpdateDailyStats(c *gin.Context) {
	var payload cache.RemoteStats
	if !bindJSON(c, &payload, "统计数据格式错误") {
		return
	}

	record, err := a.stats.Update(c.Param("date"), service.StatsInput{
		CompletedSessions: payload.CompletedSessions,
		TotalFocusTime:    payload.TotalFocusTime,
		TotalBreakTime:    payload.TotalBreakTime,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsToPayload(*record))
}

func statsToPayload(record db.DailyStat) cache.RemoteStats {
	return cache.RemoteStats{
		Date:              record.Date,
		CompletedSessions: record.CompletedSessions,
		TotalFocusTime:    record.TotalFocusTime,
		TotalBreakTime:    record.TotalBreakTime,
	}
}
