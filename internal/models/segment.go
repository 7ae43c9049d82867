package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// FilterLogic joins the conditions of a segment filter.
type FilterLogic string

const (
	LogicAnd FilterLogic = "AND"
	LogicOr  FilterLogic = "OR"
)

// FilterCondition is the stored and wire form of a segment condition. The
// value is loosely typed here and becomes a typed value when the filter is
// built against the attribute schema.
type FilterCondition struct {
	Key      string      `json:"key" example:"age"`
	Operator Operator    `json:"operator" example:"between"`
	Value    interface{} `json:"value,omitempty" swaggertype:"object"`
}

// SegmentFilter is a single flat AND/OR group of conditions.
type SegmentFilter struct {
	Logic      FilterLogic       `json:"logic" example:"AND"`
	Conditions []FilterCondition `json:"conditions"`
}

// Keys returns the attribute keys referenced by the filter.
func (f SegmentFilter) Keys() []string {
	keys := make([]string, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		keys = append(keys, c.Key)
	}
	return keys
}

// IsEmpty reports whether the filter has no conditions.
func (f SegmentFilter) IsEmpty() bool {
	return len(f.Conditions) == 0
}

// Value implements driver.Valuer
func (f SegmentFilter) Value() (driver.Value, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (f *SegmentFilter) Scan(value interface{}) error {
	if value == nil {
		*f = SegmentFilter{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for SegmentFilter column")
	}
	if len(raw) == 0 {
		*f = SegmentFilter{}
		return nil
	}
	return json.Unmarshal(raw, f)
}

// SegmentPreviewRequest represents a segment preview request
type SegmentPreviewRequest struct {
	Filter       SegmentFilter `json:"filter" binding:"required"`
	PreviewLimit int           `json:"preview_limit" example:"10"`
}

// SegmentPreviewResponse returns the match count and a bounded sample
type SegmentPreviewResponse struct {
	TotalCount int       `json:"total_count"`
	Sample     []Contact `json:"sample"`
}
