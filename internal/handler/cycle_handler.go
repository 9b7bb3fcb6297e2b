package handler

import (
	"net/http"
	"time"

	"github.com/focuscycle/internal/cache"
	"github.com/focuscycle/internal/db"
	"github.com/focuscycle/internal/service"
	"github.com/gin-gonic/gin"
)

// Health 供客户端探测远端是否可用
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Format(time.RFC3339)})
}

// ListCycles 返回全部循环及其科目
func (a *API) ListCycles(c *gin.Context) {
	cycles, err := a.cycles.List()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	payload := make([]cache.RemoteCycle, 0, len(cycles))
	for _, cycle := range cycles {
		payload = append(payload, cycleToPayload(cycle))
	}
	c.JSON(http.StatusOK, payload)
}

// GetActiveCycle 返回当前激活的循环，不存在时返回 404
func (a *API) GetActiveCycle(c *gin.Context) {
	cycle, err := a.cycles.Active()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cycleToPayload(*cycle))
}

// GetCycle 返回单个循环
func (a *API) GetCycle(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	cycle, err := a.cycles.Get(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cycleToPayload(*cycle))
}

// CreateCycle 按客户端提供的 ID 创建或覆盖循环
func (a *API) CreateCycle(c *gin.Context) {
	var payload cache.RemoteCycle
	if !bindJSON(c, &payload, "循环数据格式错误") {
		return
	}

	cycle, err := a.cycles.Upsert(service.CycleInput{
		ID:                  payload.ID,
		Name:                payload.Name,
		StudyDays:           payload.StudyDays,
		CreatedAt:           payload.CreatedAt,
		WeekStartDate:       payload.WeekStartDate,
		IsActive:            payload.IsActive,
		CurrentSubjectIndex: payload.CurrentSubjectIndex,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cycleToPayload(*cycle))
}

// UpdateCycle 修改循环名称、学习日与周起点
func (a *API) UpdateCycle(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var payload cache.CycleUpdate
	if !bindJSON(c, &payload, "循环数据格式错误") {
		return
	}

	cycle, err := a.cycles.Update(id, service.CycleUpdateInput{
		Name:          payload.Name,
		StudyDays:     payload.StudyDays,
		WeekStartDate: payload.WeekStartDate,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cycleToPayload(*cycle))
}

// DeleteCycle 删除循环及其科目
func (a *API) DeleteCycle(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := a.cycles.Delete(id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ActivateCycle 将指定循环设为唯一激活的循环
func (a *API) ActivateCycle(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := a.cycles.Activate(id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activated": true})
}

// ResetCycleWeek 清零循环内所有科目的本周分钟数
func (a *API) ResetCycleWeek(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := a.cycles.ResetWeek(id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func cycleToPayload(cycle db.Cycle) cache.RemoteCycle {
	days := cycle.StudyDays
	if days == nil {
		days = []string{}
	}
	subjects := make([]cache.RemoteSubject, 0, len(cycle.Subjects))
	for _, subject := range cycle.Subjects {
		subjects = append(subjects, subjectToPayload(subject))
	}
	return cache.RemoteCycle{
		ID:                  cycle.ID,
		Name:                cycle.Name,
		StudyDays:           days,
		CreatedAt:           cycle.CreatedAt,
		WeekStartDate:       cycle.WeekStartDate,
		IsActive:            cycle.IsActive,
		CurrentSubjectIndex: cycle.CurrentSubjectIndex,
		Subjects:            subjects,
	}
}
