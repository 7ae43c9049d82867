package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/finportal/marketing-console-backend/internal/models"
)

// accepted date layouts, most specific first
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts a raw JSON value into the canonical stored form for the
// attribute: strings for string/enum, float64 for number, int64 for integer,
// RFC3339 UTC strings for date, bool for boolean and a list of canonical
// items for array.
func Normalize(def models.AttributeSchema, raw interface{}) (interface{}, error) {
	switch def.Type {
	case models.AttributeTypeEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		if !def.Options.Contains(s) {
			return nil, fmt.Errorf("%q is not one of %v", s, []string(def.Options))
		}
		return s, nil
	case models.AttributeTypeArray:
		items, ok := raw.([]interface{})
		if !ok {
			if strs, isStrs := raw.([]string); isStrs {
				items = make([]interface{}, len(strs))
				for i, s := range strs {
					items[i] = s
				}
			} else {
				return nil, fmt.Errorf("expected array, got %T", raw)
			}
		}
		out := make([]interface{}, 0, len(items))
		for i, item := range items {
			v, err := normalizeScalar(def.ItemType, item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return normalizeScalar(def.Type, raw)
	}
}

func normalizeScalar(t models.AttributeType, raw interface{}) (interface{}, error) {
	switch t {
	case models.AttributeTypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return s, nil
	case models.AttributeTypeNumber:
		f, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", raw)
		}
		return f, nil
	case models.AttributeTypeInteger:
		f, ok := toFloat(raw)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("expected integer, got %v", raw)
		}
		return int64(f), nil
	case models.AttributeTypeDate:
		tm, ok := ToTime(raw)
		if !ok {
			return nil, fmt.Errorf("expected date, got %v", raw)
		}
		return tm.Format(time.RFC3339), nil
	case models.AttributeTypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("expected boolean, got %q", v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("expected boolean, got %T", raw)
	}
	return nil, fmt.Errorf("unsupported type %q", t)
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// ToNumber decodes a stored number or integer attribute.
func ToNumber(raw interface{}) (float64, bool) {
	return toFloat(raw)
}

// ToTime decodes a date from a time.Time or one of the accepted layouts.
// Results are always UTC.
func ToTime(raw interface{}) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return v.UTC(), true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if tm, err := time.Parse(layout, s); err == nil {
				return tm.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// ToBool decodes a stored boolean attribute.
func ToBool(raw interface{}) (bool, bool) {
	b, ok := raw.(bool)
	return b, ok
}

// ToList decodes a stored array attribute into canonical item strings.
func ToList(itemType models.AttributeType, raw interface{}) ([]string, bool) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := CanonicalItem(itemType, item)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// CanonicalItem renders an array item as the string used for comparisons,
// so stored items and condition values compare equal regardless of how the
// JSON decoder typed them.
func CanonicalItem(itemType models.AttributeType, raw interface{}) (string, bool) {
	v, err := normalizeScalar(itemType, raw)
	if err != nil {
		return "", false
	}
	return Stringify(v), true
}

// Stringify formats a normalized attribute value for display and template
// substitution.
func Stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	}
	return fmt.Sprint(v)
}
