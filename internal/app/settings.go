package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/focuscycle/internal/cache"
	"github.com/focuscycle/internal/timer"
)

// ErrUnknownTemplate 在时间模板不存在时返回
var ErrUnknownTemplate = errors.New("unknown time template")

// Settings 是计时器设置，字段以分钟为单位。
type Settings struct {
	FocusTime               int    `json:"focusTime"`
	ShortBreakTime          int    `json:"shortBreakTime"`
	LongBreakTime           int    `json:"longBreakTime"`
	SessionsBeforeLongBreak int    `json:"sessionsBeforeLongBreak"`
	AutoStartBreaks         bool   `json:"autoStartBreaks"`
	AutoStartPomodoros      bool   `json:"autoStartPomodoros"`
	Notifications           bool   `json:"notifications"`
	AlarmSound              string `json:"alarmSound"`
	CurrentTemplate         string `json:"currentTemplate"`
}

// Template 是一组预设的专注与休息时长。
type Template struct {
	Name                    string `json:"name"`
	FocusTime               int    `json:"focusTime"`
	ShortBreakTime          int    `json:"shortBreakTime"`
	LongBreakTime           int    `json:"longBreakTime"`
	SessionsBeforeLongBreak int    `json:"sessionsBeforeLongBreak"`
}

// Templates 是内置时间模板。
var Templates = map[string]Template{
	"default": {Name: "Default (25-5-15)", FocusTime: 25, ShortBreakTime: 5, LongBreakTime: 15, SessionsBeforeLongBreak: 4},
	"intense": {Name: "Intense (40-10-20)", FocusTime: 40, ShortBreakTime: 10, LongBreakTime: 20, SessionsBeforeLongBreak: 4},
	"short":   {Name: "Short (15-3-10)", FocusTime: 15, ShortBreakTime: 3, LongBreakTime: 10, SessionsBeforeLongBreak: 3},
	"long":    {Name: "Long (50-10-30)", FocusTime: 50, ShortBreakTime: 10, LongBreakTime: 30, SessionsBeforeLongBreak: 3},
}

// TemplateNames 按字母序返回模板名称。
func TemplateNames() []string {
	names := make([]string, 0, len(Templates))
	for name := range Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultSettings 返回出厂设置。
func DefaultSettings() Settings {
	return Settings{
		FocusTime:               25,
		ShortBreakTime:          5,
		LongBreakTime:           15,
		SessionsBeforeLongBreak: 4,
		AutoStartBreaks:         true,
		AutoStartPomodoros:      false,
		Notifications:           true,
		AlarmSound:              "bell",
		CurrentTemplate:         "default",
	}
}

// LoadSettings 读取已保存的设置，缺失字段保留默认值，非法值回退为默认值。
func LoadSettings(store cache.KeyValue) Settings {
	settings := DefaultSettings()
	raw, ok := store.Raw(cache.KeySettings)
	if !ok {
		return settings
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return DefaultSettings()
	}
	if settings.Validate() != nil {
		return DefaultSettings()
	}
	return settings
}

// SaveSettings 校验并保存设置。
func SaveSettings(store cache.KeyValue, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if !store.Save(cache.KeySettings, settings) {
		return errors.New("save settings: local cache unavailable")
	}
	return nil
}

// Validate 检查所有时长均为正数。
func (s Settings) Validate() error {
	switch {
	case s.FocusTime <= 0:
		return errors.New("focus time must be positive")
	case s.ShortBreakTime <= 0:
		return errors.New("short break time must be positive")
	case s.LongBreakTime <= 0:
		return errors.New("long break time must be positive")
	case s.SessionsBeforeLongBreak <= 0:
		return errors.New("sessions before long break must be positive")
	}
	return nil
}

// ApplyTemplate 用模板覆盖时长字段，其余设置保持不变。
func (s Settings) ApplyTemplate(name string) (Settings, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	tpl, ok := Templates[key]
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	s.FocusTime = tpl.FocusTime
	s.ShortBreakTime = tpl.ShortBreakTime
	s.LongBreakTime = tpl.LongBreakTime
	s.SessionsBeforeLongBreak = tpl.SessionsBeforeLongBreak
	s.CurrentTemplate = key
	return s, nil
}

// Minutes 返回指定模式的分钟数。
func (s Settings) Minutes(mode timer.Mode) int {
	switch mode {
	case timer.ModeShortBreak:
		return s.ShortBreakTime
	case timer.ModeLongBreak:
		return s.LongBreakTime
	default:
		return s.FocusTime
	}
}

// Duration 按给定的“一分钟”长度换算模式时长，unit 为 0 时使用 time.Minute。
func (s Settings) Duration(mode timer.Mode, unit time.Duration) time.Duration {
	if unit <= 0 {
		unit = time.Minute
	}
	return time.Duration(s.Minutes(mode)) * unit
}

// NextMode 决定完成一个阶段后的下一阶段：每完成 N 次专注进入长休息。
func (s Settings) NextMode(finished timer.Mode, completedFocus int) timer.Mode {
	if finished != timer.ModeFocus {
		return timer.ModeFocus
	}
	if s.SessionsBeforeLongBreak > 0 && completedFocus > 0 && completedFocus%s.SessionsBeforeLongBreak == 0 {
		return timer.ModeLongBreak
	}
	return timer.ModeShortBreak
}

// ShouldAutoStart 判断完成 finished 阶段后是否自动开始下一阶段。
func (s Settings) ShouldAutoStart(finished timer.Mode) bool {
	if finished == timer.ModeFocus {
		return s.AutoStartBreaks
	}
	return s.AutoStartPomodoros
}
