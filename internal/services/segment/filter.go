// Package segment builds typed segment filters from their stored JSON form
// and evaluates them against contacts. Evaluation is pure: it never touches
// storage and the same filter and contacts always yield the same result.
package segment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/schema"
)

// ValueKind tags the variant held by a Value.
type ValueKind string

const (
	KindNone        ValueKind = "none"
	KindString      ValueKind = "string"
	KindNumber      ValueKind = "number"
	KindTime        ValueKind = "time"
	KindBool        ValueKind = "bool"
	KindList        ValueKind = "list"
	KindNumberRange ValueKind = "number_range"
	KindTimeRange   ValueKind = "time_range"
)

// Value is the typed operand of a condition. Only the fields matching Kind
// are meaningful.
type Value struct {
	Kind   ValueKind
	String string
	Number float64
	Time   time.Time
	Bool   bool
	List   []string
	Min    float64
	Max    float64
	From   time.Time
	To     time.Time
}

// Condition is a validated condition bound to its attribute's declared type.
type Condition struct {
	Key      string
	Type     models.AttributeType
	ItemType models.AttributeType
	Operator models.Operator
	Value    Value
}

// Filter is a validated flat AND/OR group.
type Filter struct {
	Logic      models.FilterLogic
	Conditions []Condition
}

// IsEmpty reports whether the filter has no conditions. An empty filter
// matches nothing.
func (f *Filter) IsEmpty() bool {
	return f == nil || len(f.Conditions) == 0
}

// BuildFilter turns the stored form of a filter into typed conditions. Keys,
// operators and value shapes are all checked against the registry here so
// that evaluation never has to coerce.
func BuildFilter(raw models.SegmentFilter, reg *schema.Registry) (*Filter, error) {
	logic, err := parseLogic(raw.Logic)
	if err != nil {
		return nil, err
	}

	f := &Filter{Logic: logic, Conditions: make([]Condition, 0, len(raw.Conditions))}
	for i, rc := range raw.Conditions {
		cond, err := buildCondition(rc, reg)
		if err != nil {
			var ve *apperrors.ValidationError
			if errors.As(err, &ve) {
				ve.Field = fmt.Sprintf("conditions[%d].%s", i, ve.Field)
			}
			return nil, err
		}
		f.Conditions = append(f.Conditions, cond)
	}
	return f, nil
}

func parseLogic(l models.FilterLogic) (models.FilterLogic, error) {
	switch strings.ToUpper(string(l)) {
	case "", string(models.LogicAnd):
		return models.LogicAnd, nil
	case string(models.LogicOr):
		return models.LogicOr, nil
	}
	return "", apperrors.NewValidation(apperrors.CodeSegmentInvalidLogic, "logic", "logic must be AND or OR, got %q", l)
}

func buildCondition(rc models.FilterCondition, reg *schema.Registry) (Condition, error) {
	var def models.AttributeSchema
	if schema.IsReservedKey(rc.Key) {
		def = models.AttributeSchema{Key: rc.Key, Type: models.AttributeTypeString}
	} else {
		var ok bool
		def, ok = reg.Lookup(rc.Key)
		if !ok {
			return Condition{}, apperrors.NewValidation(apperrors.CodeSegmentUnknownAttribute, rc.Key, "attribute is not declared")
		}
	}

	if !schema.IsOperatorAllowed(def.Type, rc.Operator) {
		return Condition{}, apperrors.NewValidation(apperrors.CodeSegmentIllegalOperator, rc.Key,
			"operator %q is not allowed for type %s", rc.Operator, def.Type)
	}

	cond := Condition{Key: def.Key, Type: def.Type, ItemType: def.ItemType, Operator: rc.Operator}
	v, err := buildValue(def, rc.Operator, rc.Value)
	if err != nil {
		return Condition{}, apperrors.NewValidation(apperrors.CodeSegmentInvalidValue, rc.Key, "%v", err)
	}
	cond.Value = v
	return cond, nil
}

func buildValue(def models.AttributeSchema, op models.Operator, raw interface{}) (Value, error) {
	if op == models.OperatorIsEmpty || op == models.OperatorIsNotEmpty {
		return Value{Kind: KindNone}, nil
	}
	if raw == nil {
		return Value{}, fmt.Errorf("operator %q requires a value", op)
	}

	switch def.Type {
	case models.AttributeTypeString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected string value, got %T", raw)
		}
		return Value{Kind: KindString, String: s}, nil

	case models.AttributeTypeNumber, models.AttributeTypeInteger:
		if op == models.OperatorBetween {
			lo, hi, err := rangeBounds(raw)
			if err != nil {
				return Value{}, err
			}
			lower, ok1 := parseNumber(lo)
			upper, ok2 := parseNumber(hi)
			if !ok1 || !ok2 {
				return Value{}, fmt.Errorf("between bounds must be numbers")
			}
			if lower > upper {
				return Value{}, fmt.Errorf("between lower bound %v exceeds upper bound %v", lower, upper)
			}
			return Value{Kind: KindNumberRange, Min: lower, Max: upper}, nil
		}
		n, ok := parseNumber(raw)
		if !ok {
			return Value{}, fmt.Errorf("expected numeric value, got %v", raw)
		}
		return Value{Kind: KindNumber, Number: n}, nil

	case models.AttributeTypeDate:
		if op == models.OperatorBetween {
			lo, hi, err := rangeBounds(raw)
			if err != nil {
				return Value{}, err
			}
			from, ok1 := schema.ToTime(lo)
			to, ok2 := schema.ToTime(hi)
			if !ok1 || !ok2 {
				return Value{}, fmt.Errorf("between bounds must be dates")
			}
			if from.After(to) {
				return Value{}, fmt.Errorf("between start is after end")
			}
			return Value{Kind: KindTimeRange, From: from, To: to}, nil
		}
		tm, ok := schema.ToTime(raw)
		if !ok {
			return Value{}, fmt.Errorf("expected date value, got %v", raw)
		}
		return Value{Kind: KindTime, Time: tm}, nil

	case models.AttributeTypeBoolean:
		switch b := raw.(type) {
		case bool:
			return Value{Kind: KindBool, Bool: b}, nil
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return Value{}, fmt.Errorf("expected boolean value, got %q", b)
			}
			return Value{Kind: KindBool, Bool: parsed}, nil
		}
		return Value{}, fmt.Errorf("expected boolean value, got %T", raw)

	case models.AttributeTypeEnum:
		if op == models.OperatorIn {
			items, err := stringList(raw)
			if err != nil {
				return Value{}, err
			}
			for _, item := range items {
				if !def.Options.Contains(item) {
					return Value{}, fmt.Errorf("%q is not an option of %s", item, def.Key)
				}
			}
			return Value{Kind: KindList, List: items}, nil
		}
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected string value, got %T", raw)
		}
		if !def.Options.Contains(s) {
			return Value{}, fmt.Errorf("%q is not an option of %s", s, def.Key)
		}
		return Value{Kind: KindString, String: s}, nil

	case models.AttributeTypeArray:
		if op == models.OperatorContainsAny {
			list, ok := raw.([]interface{})
			if !ok || len(list) == 0 {
				return Value{}, fmt.Errorf("contains_any requires a non-empty list")
			}
			items := make([]string, 0, len(list))
			for _, item := range list {
				s, ok := schema.CanonicalItem(def.ItemType, item)
				if !ok {
					return Value{}, fmt.Errorf("item %v is not a valid %s", item, def.ItemType)
				}
				items = append(items, s)
			}
			return Value{Kind: KindList, List: items}, nil
		}
		s, ok := schema.CanonicalItem(def.ItemType, raw)
		if !ok {
			return Value{}, fmt.Errorf("item %v is not a valid %s", raw, def.ItemType)
		}
		return Value{Kind: KindString, String: s}, nil
	}

	return Value{}, fmt.Errorf("unsupported type %q", def.Type)
}

// rangeBounds accepts [lo, hi] or {"from": lo, "to": hi}.
func rangeBounds(raw interface{}) (interface{}, interface{}, error) {
	switch v := raw.(type) {
	case []interface{}:
		if len(v) == 2 {
			return v[0], v[1], nil
		}
	case map[string]interface{}:
		lo, okLo := v["from"]
		hi, okHi := v["to"]
		if okLo && okHi {
			return lo, hi, nil
		}
	}
	return nil, nil, fmt.Errorf("between requires [from, to]")
}

func parseNumber(raw interface{}) (float64, bool) {
	if s, ok := raw.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return schema.ToNumber(raw)
}

func stringList(raw interface{}) ([]string, error) {
	list, ok := raw.([]interface{})
	if !ok {
		if strs, isStrs := raw.([]string); isStrs {
			list = make([]interface{}, len(strs))
			for i, s := range strs {
				list[i] = s
			}
		} else {
			return nil, fmt.Errorf("expected a list, got %T", raw)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("list must not be empty")
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string items, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}
