package cycle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportCycle 生成版本化快照，cycleID 为空时导出激活循环。
func (r *Repository) ExportCycle(cycleID string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.resolveCycleLocked(cycleID)
	if c == nil {
		return nil, ErrCycleNotFound
	}

	return &Snapshot{
		Version:    ExportVersion,
		Cycle:      c.clone(),
		ExportDate: r.now(),
	}, nil
}

// ExportJSON 以缩进 JSON 形式导出循环，便于直接写入文件。
func (r *Repository) ExportJSON(cycleID string) ([]byte, error) {
	snapshot, err := r.ExportCycle(cycleID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(snapshot, "", "  ")
}

type importEnvelope struct {
	Version string `json:"version"`
	Cycle   *Cycle `json:"cycle"`
}

// ImportCycle 导入快照，payload 可以是 JSON 字符串、[]byte、Snapshot 或任意可编码为 JSON 的对象。
// 导入的循环与科目都会获得新的 ID，本周分钟数清零，并追加到集合末尾（不自动激活）。
func (r *Repository) ImportCycle(payload any) (*Cycle, error) {
	envelope, err := decodeImport(payload)
	if err != nil {
		return nil, err
	}
	if envelope.Version != ExportVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidImport, envelope.Version)
	}
	if envelope.Cycle == nil {
		return nil, fmt.Errorf("%w: missing cycle", ErrInvalidImport)
	}

	imported := envelope.Cycle.clone()
	imported.Name = strings.TrimSpace(imported.Name)
	if imported.Name == "" {
		return nil, fmt.Errorf("%w: cycle name is required", ErrInvalidImport)
	}
	if len(imported.StudyDays) == 0 {
		imported.StudyDays = DefaultStudyDays()
	}
	days, err := normalizeStudyDays(imported.StudyDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	imported.StudyDays = days

	for _, s := range imported.Subjects {
		if strings.TrimSpace(s.Name) == "" || s.WeeklyHours < 0 || s.TotalMinutes < 0 || s.TotalSessions < 0 {
			return nil, fmt.Errorf("%w: malformed subject %q", ErrInvalidImport, s.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	imported.ID = r.newID()
	imported.CreatedAt = now
	imported.WeekStartDate = WeekStart(now)
	for i := range imported.Subjects {
		s := &imported.Subjects[i]
		s.ID = r.newID()
		s.CurrentWeekMinutes = 0
		if s.Priority < 1 {
			s.Priority = DefaultPriority
		}
		if strings.TrimSpace(s.Color) == "" {
			s.Color = DefaultColor
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
	}
	imported.clampIndex()

	stored := imported.clone()
	r.cycles = append(r.cycles, &stored)
	if r.activeID == "" {
		r.activeID = stored.ID
	}
	r.persistLocked()

	r.log.Info("study cycle imported")
	return &imported, nil
}

func decodeImport(payload any) (importEnvelope, error) {
	var raw []byte
	switch p := payload.(type) {
	case nil:
		return importEnvelope{}, fmt.Errorf("%w: empty payload", ErrInvalidImport)
	case string:
		raw = []byte(p)
	case []byte:
		raw = p
	case json.RawMessage:
		raw = p
	case Snapshot:
		cycle := p.Cycle
		return importEnvelope{Version: p.Version, Cycle: &cycle}, nil
	case *Snapshot:
		if p == nil {
			return importEnvelope{}, fmt.Errorf("%w: empty payload", ErrInvalidImport)
		}
		cycle := p.Cycle
		return importEnvelope{Version: p.Version, Cycle: &cycle}, nil
	default:
		encoded, err := json.Marshal(p)
		if err != nil {
			return importEnvelope{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
		}
		raw = encoded
	}

	var envelope importEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return importEnvelope{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	return envelope, nil
}
