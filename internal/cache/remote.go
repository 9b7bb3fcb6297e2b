package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/focuscycle/internal/logger"
	"go.uber.org/zap"
)

// DefaultTimeout 是单次远端请求（含健康探测）的等待上限。
const DefaultTimeout = 3 * time.Second

var errNotFound = errors.New("remote record not found")

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Remote 是远端镜像的 HTTP 客户端。
// 所有方法都不会向调用方返回错误：失败时记录日志并返回 nil/false，由调用方自行回退。
type Remote struct {
	http    httpDoer
	baseURL string
	timeout time.Duration
	log     *zap.Logger
}

// NewRemote 构造 Remote，baseURL 形如 http://localhost:8000/api。
func NewRemote(baseURL string, timeout time.Duration, log *zap.Logger) *Remote {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Remote{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout: timeout,
		log:     logger.OrNop(log),
	}
}

// SetHTTPClient 替换底层 HTTP 客户端，传入 nil 时恢复默认客户端。
func (r *Remote) SetHTTPClient(client httpDoer) {
	if client == nil {
		r.http = &http.Client{Timeout: r.timeout}
		return
	}
	r.http = client
}

// BaseURL 返回当前远端地址。
func (r *Remote) BaseURL() string {
	return r.baseURL
}

// Available 通过 GET /health 探测远端是否可用。
func (r *Remote) Available(ctx context.Context) bool {
	if r.baseURL == "" {
		return false
	}
	if _, err := r.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		r.log.Info("remote unavailable, running offline", zap.Error(err))
		return false
	}
	return true
}

// GetCycles 返回远端全部循环（含科目），远端不可用时返回 nil。
func (r *Remote) GetCycles(ctx context.Context) []RemoteCycle {
	if !r.Available(ctx) {
		return nil
	}
	var cycles []RemoteCycle
	if !r.call(ctx, "get cycles", http.MethodGet, "/cycles", nil, &cycles) {
		return nil
	}
	return cycles
}

// GetActiveCycle 返回远端标记为激活的循环，不存在或失败时返回 nil。
func (r *Remote) GetActiveCycle(ctx context.Context) *RemoteCycle {
	var cycle RemoteCycle
	if _, err := r.do(ctx, http.MethodGet, "/cycles/active", nil, &cycle); err != nil {
		if !errors.Is(err, errNotFound) {
			r.warn("get active cycle", err)
		}
		return nil
	}
	if cycle.ID == "" {
		return nil
	}
	return &cycle
}

// CreateCycle 创建或覆盖远端循环。
func (r *Remote) CreateCycle(ctx context.Context, cycle RemoteCycle) *RemoteCycle {
	var created RemoteCycle
	if !r.call(ctx, "create cycle", http.MethodPost, "/cycles", cycle, &created) {
		return nil
	}
	return &created
}

// UpdateCycle 更新远端循环的名称、学习日与周起始日期。
func (r *Remote) UpdateCycle(ctx context.Context, id string, update CycleUpdate) bool {
	return r.call(ctx, "update cycle", http.MethodPut, "/cycles/"+url.PathEscape(id), update, nil)
}

// DeleteCycle 删除远端循环。
func (r *Remote) DeleteCycle(ctx context.Context, id string) bool {
	return r.call(ctx, "delete cycle", http.MethodDelete, "/cycles/"+url.PathEscape(id), nil, nil)
}

// ActivateCycle 将远端循环设为唯一激活。
func (r *Remote) ActivateCycle(ctx context.Context, id string) bool {
	return r.call(ctx, "activate cycle", http.MethodPut, "/cycles/"+url.PathEscape(id)+"/activate", nil, nil)
}

// ResetWeek 清零远端循环下所有科目的本周分钟数。
func (r *Remote) ResetWeek(ctx context.Context, cycleID string) bool {
	return r.call(ctx, "reset week", http.MethodPut, "/cycles/"+url.PathEscape(cycleID)+"/reset-week", nil, nil)
}

// CreateSubject 创建或覆盖远端科目。
func (r *Remote) CreateSubject(ctx context.Context, subject RemoteSubject) *RemoteSubject {
	var created RemoteSubject
	if !r.call(ctx, "create subject", http.MethodPost, "/subjects", subject, &created) {
		return nil
	}
	return &created
}

// UpdateSubject 以整条记录覆盖远端科目。
func (r *Remote) UpdateSubject(ctx context.Context, id string, subject RemoteSubject) bool {
	return r.call(ctx, "update subject", http.MethodPut, "/subjects/"+url.PathEscape(id), subject, nil)
}

// DeleteSubject 删除远端科目。
func (r *Remote) DeleteSubject(ctx context.Context, id string) bool {
	return r.call(ctx, "delete subject", http.MethodDelete, "/subjects/"+url.PathEscape(id), nil, nil)
}

// CreateSession 追加一条学习记录。
func (r *Remote) CreateSession(ctx context.Context, session SessionRecord) bool {
	return r.call(ctx, "create session", http.MethodPost, "/sessions", session, nil)
}

// GetStats 读取某日统计，date 采用 2006-01-02。
func (r *Remote) GetStats(ctx context.Context, date string) *RemoteStats {
	var stats RemoteStats
	if !r.call(ctx, "get stats", http.MethodGet, "/stats/"+url.PathEscape(date), nil, &stats) {
		return nil
	}
	return &stats
}

// UpdateStats 覆盖某日统计。
func (r *Remote) UpdateStats(ctx context.Context, date string, stats RemoteStats) bool {
	return r.call(ctx, "update stats", http.MethodPut, "/stats/"+url.PathEscape(date), stats, nil)
}

func (r *Remote) call(ctx context.Context, op, method, path string, body, out any) bool {
	if _, err := r.do(ctx, method, path, body, out); err != nil {
		r.warn(op, err)
		return false
	}
	return true
}

func (r *Remote) warn(op string, err error) {
	r.log.Warn("remote sync failed", zap.String("op", op), zap.String("base_url", r.baseURL), zap.Error(err))
}

func (r *Remote) do(ctx context.Context, method, path string, body, out any) (int, error) {
	if r.baseURL == "" {
		return 0, errors.New("remote base url is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "focuscycle/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := r.http
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, fmt.Errorf("%s %s: %w", method, path, errNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("%s %s: unexpected status %s", method, path, resp.Status)
	}

	trimmed := bytes.TrimSpace(respBody)
	if out != nil && len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
