package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/focuscycle/internal/service"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func idParam(c *gin.Context, key string) (string, bool) {
	id := strings.TrimSpace(c.Param(key))
	if id == "" {
		respondError(c, http.StatusBadRequest, "无效的ID")
		return "", false
	}
	return id, true
}

func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCycleNotFound):
		respondError(c, http.StatusNotFound, "循环不存在")
	case errors.Is(err, service.ErrSubjectNotFound):
		respondError(c, http.StatusNotFound, "科目不存在")
	case errors.Is(err, service.ErrInvalidCycle):
		respondError(c, http.StatusBadRequest, "循环参数无效")
	case errors.Is(err, service.ErrInvalidSubject):
		respondError(c, http.StatusBadRequest, "科目参数无效")
	case errors.Is(err, service.ErrInvalidSession):
		respondError(c, http.StatusBadRequest, "学习记录参数无效")
	case errors.Is(err, service.ErrInvalidDate):
		respondError(c, http.StatusBadRequest, "日期格式应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrInvalidStats):
		respondError(c, http.StatusBadRequest, "统计数据无效")
	default:
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
