package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var namePolicy = bluemonday.StrictPolicy()

// sanitizeName 去除名称中的全部 HTML 标签，保留普通字符（如 &）原样。
func sanitizeName(raw string) string {
	cleaned := namePolicy.Sanitize(strings.TrimSpace(raw))
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
