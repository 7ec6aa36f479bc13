package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray stores an ordered list of strings in a single text column as
// a JSON array, so the same model works on postgres, mysql and sqlite.
// Rows written by older tooling in postgres array literal form ({a,b}) are
// still readable.
type StringArray []string

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = StringArray{}
		return nil
	case []byte:
		return a.parse(string(v))
	case string:
		return a.parse(v)
	default:
		return fmt.Errorf("StringArray: unsupported scan type %T", value)
	}
}

func (a *StringArray) parse(s string) error {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "null":
		*a = StringArray{}
		return nil
	case strings.HasPrefix(s, "["):
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return fmt.Errorf("StringArray: %w", err)
		}
		*a = out
		return nil
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		*a = parsePostgresArray(s[1 : len(s)-1])
		return nil
	default:
		*a = StringArray{s}
		return nil
	}
}

// parsePostgresArray splits the body of a postgres array literal, honouring
// double quotes and backslash escapes.
func parsePostgresArray(s string) StringArray {
	out := StringArray{}
	if s == "" {
		return out
	}

	var cur strings.Builder
	inQuotes, escaped := false, false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(out, cur.String())
}

// Value implements driver.Valuer. A nil array is stored as "[]" so list
// columns never hold NULL.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (StringArray) GormDataType() string {
	return "text"
}
