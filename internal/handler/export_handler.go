package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/focuscycle/internal/cache"
	"github.com/focuscycle/internal/service"
	"github.com/gin-gonic/gin"
)

const csvDateFormat = "2006-01-02"

// 列名沿用历史导出文件，避免已有表格模板失效
var csvHeader = []string{"Data", "Disciplina", "Minutos", "Hora Início", "Hora Fim"}

type exportPayload struct {
	Cycles     []cache.RemoteCycle   `json:"cycles"`
	Subjects   []cache.RemoteSubject `json:"subjects"`
	Sessions   []service.SessionRow  `json:"sessions"`
	ExportedAt string                `json:"exported_at"`
}

// ExportJSON 导出全部循环、科目与学习记录
func (a *API) ExportJSON(c *gin.Context) {
	cycles, err := a.cycles.List()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	subjects, err := a.subjects.List()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	sessions, err := a.sessions.List()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	payload := exportPayload{
		Cycles:     make([]cache.RemoteCycle, 0, len(cycles)),
		Subjects:   make([]cache.RemoteSubject, 0, len(subjects)),
		Sessions:   sessions,
		ExportedAt: time.Now().Format(time.RFC3339),
	}
	if payload.Sessions == nil {
		payload.Sessions = []service.SessionRow{}
	}
	for _, cycle := range cycles {
		item := cycleToPayload(cycle)
		item.Subjects = nil
		payload.Cycles = append(payload.Cycles, item)
	}
	for _, subject := range subjects {
		payload.Subjects = append(payload.Subjects, subjectToPayload(subject))
	}

	c.JSON(http.StatusOK, payload)
}

// ExportCSV 以 CSV 下载学习记录
func (a *API) ExportCSV(c *gin.Context) {
	sessions, err := a.sessions.List()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvHeader); err != nil {
		handleServiceError(c, err)
		return
	}
	for _, row := range sessions {
		record := []string{
			row.StartedAt.Format(csvDateFormat),
			row.SubjectName,
			strconv.Itoa(row.Minutes),
			row.StartedAt.Format("15:04"),
			row.CompletedAt.Format("15:04"),
		}
		if err := writer.Write(record); err != nil {
			handleServiceError(c, err)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("pomodoro-stats-%s.csv", time.Now().Format(csvDateFormat))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
