package handler

import (
	"net/http"

	"github.com/focuscycle/internal/cache"
	"github.com/focuscycle/internal/db"
	"github.com/focuscycle/internal/service"
	"github.com/gin-gonic/gin"
)

// CreateSubject 按 ID 创建或覆盖科目
func (a *API) CreateSubject(c *gin.Context) {
	var payload cache.RemoteSubject
	if !bindJSON(c, &payload, "科目数据格式错误") {
		return
	}

	subject, err := a.subjects.Upsert(subjectInput(payload))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, subjectToPayload(*subject))
}

// UpdateSubject 覆盖科目的全部可变字段
func (a *API) UpdateSubject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var payload cache.RemoteSubject
	if !bindJSON(c, &payload, "科目数据格式错误") {
		return
	}

	subject, err := a.subjects.Update(id, subjectInput(payload))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, subjectToPayload(*subject))
}

// DeleteSubject 删除科目，历史学习记录保留
func (a *API) DeleteSubject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := a.subjects.Delete(id); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func subjectInput(payload cache.RemoteSubject) service.SubjectInput {
	return service.SubjectInput{
		ID:                 payload.ID,
		CycleID:            payload.CycleID,
		Name:               payload.Name,
		WeeklyHours:        payload.WeeklyHours,
		Color:              payload.Color,
		Priority:           payload.Priority,
		CurrentWeekMinutes: payload.CurrentWeekMinutes,
		TotalMinutes:       payload.TotalMinutes,
		TotalSessions:      payload.TotalSessions,
		LastStudied:        payload.LastStudied,
		Position:           payload.Position,
		CreatedAt:          payload.CreatedAt,
	}
}

func subjectToPayload(subject db.Subject) cache.RemoteSubject {
	created := subject.CreatedAt
	return cache.RemoteSubject{
		ID:                 subject.ID,
		CycleID:            subject.CycleID,
		Name:               subject.Name,
		WeeklyHours:        subject.WeeklyHours,
		Color:              subject.Color,
		Priority:           subject.Priority,
		CurrentWeekMinutes: subject.CurrentWeekMinutes,
		TotalMinutes:       subject.TotalMinutes,
		TotalSessions:      subject.TotalSessions,
		LastStudied:        subject.LastStudied,
		CreatedAt:          &created,
		Position:           subject.Position,
	}
}
