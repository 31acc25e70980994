package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row 是一条松散类型的查询结果记录，字段取决于意图。
type Row map[string]interface{}

// String 以字符串形式读取字段，兼容驱动返回的 []byte。
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}

// Float 以 float64 读取数值字段，无法解析时返回 0。
func (r Row) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case uint64:
		return float64(v)
	case []byte:
		f, _ := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(v, ",", ".")), 64)
		return f
	default:
		return 0
	}
}

// Int 以 int 读取数值字段。
func (r Row) Int(key string) int {
	return int(r.Float(key))
}

// Bool 读取布尔字段，兼容 tinyint。
func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case nil:
		return false
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "1" || s == "true" || s == "si" || s == "sí"
	case []byte:
		s := strings.ToLower(strings.TrimSpace(string(v)))
		return s == "1" || s == "true" || s == "si" || s == "sí"
	default:
		return r.Float(key) != 0
	}
}

// Time 读取日期字段。ok 为 false 表示为空或无法解析。
func (r Row) Time(key string) (time.Time, bool) {
	switch v := r[key].(type) {
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, !v.IsZero()
	case string:
		return parseDateString(v)
	case []byte:
		return parseDateString(string(v))
	default:
		return time.Time{}, false
	}
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
