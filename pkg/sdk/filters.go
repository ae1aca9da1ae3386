package sdk

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// FieldMap holds session field equality constraints for list filters.
type FieldMap map[string]any

// Field represents a single key/value pair after sorting.
type Field struct {
	Key   string
	Value any
}

// SortFields returns a slice of Field sorted lexicographically by key.
// Nil input results in an empty slice.
func SortFields(fields FieldMap) []Field {
	if len(fields) == 0 {
		return []Field{}
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sorted := make([]Field, 0, len(keys))
	for _, key := range keys {
		sorted = append(sorted, Field{Key: key, Value: fields[key]})
	}
	return sorted
}

// BuildBexprFilter builds a bexpr AND filter from the provided fields.
// Strings are quoted, booleans and numbers are emitted verbatim.
// When fields is empty an empty string is returned.
func BuildBexprFilter(fields FieldMap) string {
	if len(fields) == 0 {
		return ""
	}
	expressions := make([]string, 0, len(fields))
	for _, field := range SortFields(fields) {
		expressions = append(expressions, fmt.Sprintf("%s == %s", field.Key, formatBexprValue(field.Value)))
	}
	return strings.Join(expressions, " and ")
}

// ParseFieldArgs converts KEY=VALUE arguments into a FieldMap. Values that
// parse as integers or booleans keep that type; everything else is a string.
func ParseFieldArgs(args []string) (FieldMap, error) {
	if len(args) == 0 {
		return nil, nil
	}
	fields := make(FieldMap, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("filter %q must be KEY=VALUE", arg)
		}
		raw = strings.TrimSpace(raw)
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			fields[key] = n
			continue
		}
		if b, err := strconv.ParseBool(raw); err == nil {
			fields[key] = b
			continue
		}
		fields[key] = raw
	}
	return fields, nil
}

func formatBexprValue(value any) string {
	switch v := value.(type) {
	case string:
		return strconv.Quote(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		if _, frac := math.Modf(v); frac == 0 {
			return strconv.FormatFloat(v, 'f', 0, 64)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return formatBexprValue(float64(v))
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	default:
		return strconv.Quote(fmt.Sprintf("%v", value))
	}
}
