package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/focuscycle/internal/cache"
	"github.com/focuscycle/internal/db"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T, origins []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return SetupRouter(gdb, origins, nil)
}

func serve(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestSetupRouterServesRootAndHealth(t *testing.T) {
	r := newTestRouter(t, nil)

	rr := serve(r, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "message") {
		t.Fatalf("unexpected root response: %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(r, http.MethodGet, "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", rr.Code)
	}
}

func TestSetupRouterCycleLifecycle(t *testing.T) {
	r := newTestRouter(t, nil)

	if rr := serve(r, http.MethodGet, "/api/cycles/active", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without active cycle, got %d", rr.Code)
	}

	rr := serve(r, http.MethodPost, "/api/cycles", cache.RemoteCycle{ID: "c1", Name: "Finals", StudyDays: []string{"mon"}, IsActive: true})
	if rr.Code != http.StatusOK {
		t.Fatalf("create cycle failed: %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(r, http.MethodPost, "/api/subjects", cache.RemoteSubject{ID: "s1", CycleID: "c1", Name: "Math", WeeklyHours: 2, CurrentWeekMinutes: 45})
	if rr.Code != http.StatusOK {
		t.Fatalf("create subject failed: %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(r, http.MethodGet, "/api/cycles/active", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected active cycle, got %d", rr.Code)
	}
	var active cache.RemoteCycle
	if err := json.Unmarshal(rr.Body.Bytes(), &active); err != nil {
		t.Fatalf("failed to decode cycle: %v", err)
	}
	if active.ID != "c1" || len(active.Subjects) != 1 || active.Subjects[0].CurrentWeekMinutes != 45 {
		t.Fatalf("unexpected active cycle: %#v", active)
	}

	if rr := serve(r, http.MethodPut, "/api/cycles/c1/reset-week", nil); rr.Code != http.StatusOK {
		t.Fatalf("reset week failed: %d", rr.Code)
	}
	rr = serve(r, http.MethodGet, "/api/cycles/c1", nil)
	var reset cache.RemoteCycle
	if err := json.Unmarshal(rr.Body.Bytes(), &reset); err != nil {
		t.Fatalf("failed to decode cycle: %v", err)
	}
	if reset.Subjects[0].CurrentWeekMinutes != 0 {
		t.Fatalf("week minutes should be cleared: %#v", reset.Subjects[0])
	}

	if rr := serve(r, http.MethodPut, "/api/cycles/c1", cache.CycleUpdate{Name: "Renamed", StudyDays: []string{"tue"}}); rr.Code != http.StatusOK {
		t.Fatalf("update cycle failed: %d %s", rr.Code, rr.Body.String())
	}
	if rr := serve(r, http.MethodDelete, "/api/subjects/s1", nil); rr.Code != http.StatusOK {
		t.Fatalf("delete subject failed: %d", rr.Code)
	}
	if rr := serve(r, http.MethodDelete, "/api/subjects/s1", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rr.Code)
	}
	if rr := serve(r, http.MethodPut, "/api/cycles/missing/activate", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 activating unknown cycle, got %d", rr.Code)
	}
	if rr := serve(r, http.MethodDelete, "/api/cycles/c1", nil); rr.Code != http.StatusOK {
		t.Fatalf("delete cycle failed: %d", rr.Code)
	}
}

func TestSetupRouterRejectsInvalidPayloads(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/cycles", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rr.Code)
	}

	if rr := serve(r, http.MethodPost, "/api/subjects", cache.RemoteSubject{ID: "s1", CycleID: "nope", Name: "x"}); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown cycle, got %d", rr.Code)
	}
	if rr := serve(r, http.MethodPost, "/api/sessions", cache.SessionRecord{SubjectID: "s1"}); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero minutes, got %d", rr.Code)
	}
	if rr := serve(r, http.MethodGet, "/api/stats/today", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid date, got %d", rr.Code)
	}
}

func TestSetupRouterStatsAndExport(t *testing.T) {
	r := newTestRouter(t, nil)

	serve(r, http.MethodPost, "/api/cycles", cache.RemoteCycle{ID: "c1", Name: "Cycle", IsActive: true})
	serve(r, http.MethodPost, "/api/subjects", cache.RemoteSubject{ID: "s1", CycleID: "c1", Name: "Biology"})
	if rr := serve(r, http.MethodPost, "/api/sessions", cache.SessionRecord{SubjectID: "s1", Minutes: 25}); rr.Code != http.StatusOK {
		t.Fatalf("create session failed: %d %s", rr.Code, rr.Body.String())
	}

	rr := serve(r, http.MethodPut, "/api/stats/2024-05-08", cache.RemoteStats{CompletedSessions: 2, TotalFocusTime: 50, TotalBreakTime: 5})
	if rr.Code != http.StatusOK {
		t.Fatalf("update stats failed: %d %s", rr.Code, rr.Body.String())
	}
	rr = serve(r, http.MethodGet, "/api/stats/2024-05-08", nil)
	var daily cache.RemoteStats
	if err := json.Unmarshal(rr.Body.Bytes(), &daily); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if daily.Date != "2024-05-08" || daily.TotalFocusTime != 50 {
		t.Fatalf("unexpected daily stats: %#v", daily)
	}

	rr = serve(r, http.MethodGet, "/api/stats/general", nil)
	var general map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &general); err != nil {
		t.Fatalf("failed to decode general stats: %v", err)
	}
	if general["totalSessions"] != float64(1) || general["activeCycleId"] != "c1" {
		t.Fatalf("unexpected general stats: %#v", general)
	}

	rr = serve(r, http.MethodGet, "/api/export/json", nil)
	var exported map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &exported); err != nil {
		t.Fatalf("failed to decode export: %v", err)
	}
	for _, key := range []string{"cycles", "subjects", "sessions", "exported_at"} {
		if _, ok := exported[key]; !ok {
			t.Fatalf("export missing %q: %s", key, rr.Body.String())
		}
	}

	rr = serve(r, http.MethodGet, "/api/export/csv", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("csv export failed: %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "pomodoro-stats-") {
		t.Fatalf("unexpected disposition: %q", rr.Header().Get("Content-Disposition"))
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "Data,Disciplina,Minutos") || !strings.Contains(lines[1], "Biology,25") {
		t.Fatalf("unexpected csv body: %q", rr.Body.String())
	}
}

func TestSetupRouterCORS(t *testing.T) {
	r := newTestRouter(t, []string{"http://localhost:5173"})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected disallowed origin to be rejected, got %d", rr.Code)
	}
}
