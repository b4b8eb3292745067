package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// SizeList stores a set of size codes as a comma separated text column.
type SizeList []string

func (l *SizeList) Scan(src any) error {
	if src == nil {
		*l = SizeList{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return l.parseFromString(v)
	case []byte:
		return l.parseFromString(string(v))
	default:
		return fmt.Errorf("SizeList: unsupported Scan type %T", src)
	}
}

func (l SizeList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "", nil
	}
	return strings.Join(l, ","), nil
}

// GormDataType keeps the column a plain text type on every dialect.
func (SizeList) GormDataType() string {
	return "text"
}

// Contains reports whether size is part of the list (case-insensitive).
func (l SizeList) Contains(size string) bool {
	size = strings.TrimSpace(size)
	for _, candidate := range l {
		if strings.EqualFold(candidate, size) {
			return true
		}
	}
	return false
}

func (l *SizeList) parseFromString(s string) error {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if s == "" {
		*l = SizeList{}
		return nil
	}

	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.ToUpper(strings.TrimSpace(strings.Trim(r, `"`)))
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	*l = out
	return nil
}
