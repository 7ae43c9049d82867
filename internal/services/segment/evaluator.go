package segment

import (
	"context"
	"fmt"
	"strings"

	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/schema"
)

// Evaluate returns the contacts matching f, in input order. An empty filter
// matches nothing.
func Evaluate(f *Filter, contacts []models.Contact) []models.Contact {
	matched := make([]models.Contact, 0)
	if f.IsEmpty() {
		return matched
	}
	for i := range contacts {
		if Matches(f, &contacts[i]) {
			matched = append(matched, contacts[i])
		}
	}
	return matched
}

// Matches reports whether a single contact satisfies f.
func Matches(f *Filter, c *models.Contact) bool {
	if f.IsEmpty() {
		return false
	}
	attrs := contactAttributes(c)
	if f.Logic == models.LogicOr {
		for _, cond := range f.Conditions {
			if EvaluateCondition(cond, attrs) {
				return true
			}
		}
		return false
	}
	for _, cond := range f.Conditions {
		if !EvaluateCondition(cond, attrs) {
			return false
		}
	}
	return true
}

// contactAttributes overlays the phone and email fields on the attribute map
// without mutating the contact.
func contactAttributes(c *models.Contact) map[string]interface{} {
	if c.Phone == "" && c.Email == "" {
		return c.Attributes
	}
	attrs := make(map[string]interface{}, len(c.Attributes)+2)
	for k, v := range c.Attributes {
		attrs[k] = v
	}
	if c.Phone != "" {
		attrs["phone"] = c.Phone
	}
	if c.Email != "" {
		attrs["email"] = c.Email
	}
	return attrs
}

// EvaluateCondition applies one condition to an attribute map. A missing
// attribute is false for every operator except is_empty.
func EvaluateCondition(cond Condition, attrs map[string]interface{}) bool {
	raw, present := attrs[cond.Key]
	if raw == nil {
		present = false
	}

	switch cond.Operator {
	case models.OperatorIsEmpty:
		return !present || isEmptyValue(raw)
	case models.OperatorIsNotEmpty:
		return present && !isEmptyValue(raw)
	}
	if !present {
		return false
	}

	switch cond.Type {
	case models.AttributeTypeString:
		return matchString(cond, raw)
	case models.AttributeTypeNumber, models.AttributeTypeInteger:
		return matchNumber(cond, raw)
	case models.AttributeTypeDate:
		return matchDate(cond, raw)
	case models.AttributeTypeBoolean:
		b, ok := schema.ToBool(raw)
		return ok && cond.Operator == models.OperatorEquals && b == cond.Value.Bool
	case models.AttributeTypeEnum:
		return matchEnum(cond, raw)
	case models.AttributeTypeArray:
		return matchArray(cond, raw)
	}
	return false
}

func isEmptyValue(raw interface{}) bool {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// string comparisons are case-insensitive
func matchString(cond Condition, raw interface{}) bool {
	s, ok := raw.(string)
	if !ok {
		return false
	}
	subject := strings.ToLower(s)
	operand := strings.ToLower(cond.Value.String)

	switch cond.Operator {
	case models.OperatorEquals:
		return subject == operand
	case models.OperatorContains:
		return strings.Contains(subject, operand)
	case models.OperatorStartsWith:
		return strings.HasPrefix(subject, operand)
	case models.OperatorEndsWith:
		return strings.HasSuffix(subject, operand)
	}
	return false
}

func matchNumber(cond Condition, raw interface{}) bool {
	n, ok := schema.ToNumber(raw)
	if !ok {
		return false
	}
	v := cond.Value
	switch cond.Operator {
	case models.OperatorEquals:
		return n == v.Number
	case models.OperatorGt:
		return n > v.Number
	case models.OperatorGte:
		return n >= v.Number
	case models.OperatorLt:
		return n < v.Number
	case models.OperatorLte:
		return n <= v.Number
	case models.OperatorBetween:
		return n >= v.Min && n <= v.Max
	}
	return false
}

func matchDate(cond Condition, raw interface{}) bool {
	tm, ok := schema.ToTime(raw)
	if !ok {
		return false
	}
	v := cond.Value
	switch cond.Operator {
	case models.OperatorBefore:
		return tm.Before(v.Time)
	case models.OperatorAfter:
		return tm.After(v.Time)
	case models.OperatorBetween:
		return !tm.Before(v.From) && !tm.After(v.To)
	}
	return false
}

func matchEnum(cond Condition, raw interface{}) bool {
	s, ok := raw.(string)
	if !ok {
		return false
	}
	switch cond.Operator {
	case models.OperatorEquals:
		return s == cond.Value.String
	case models.OperatorIn:
		for _, item := range cond.Value.List {
			if s == item {
				return true
			}
		}
	}
	return false
}

func matchArray(cond Condition, raw interface{}) bool {
	items, ok := schema.ToList(cond.ItemType, raw)
	if !ok {
		return false
	}
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	switch cond.Operator {
	case models.OperatorContains:
		return set[cond.Value.String]
	case models.OperatorContainsAny:
		for _, want := range cond.Value.List {
			if set[want] {
				return true
			}
		}
	}
	return false
}

// PageFunc returns up to limit contacts ordered by id, starting after
// afterID. An empty afterID starts from the beginning.
type PageFunc func(ctx context.Context, afterID string, limit int) ([]models.Contact, error)

// Preview is the result of PreviewCount.
type Preview struct {
	TotalCount int              `json:"total_count"`
	Sample     []models.Contact `json:"sample"`
}

// PreviewCount counts the contacts matching f while holding at most one page
// in memory, keeping the first sampleLimit matches.
func PreviewCount(ctx context.Context, f *Filter, fetch PageFunc, sampleLimit, pageSize int) (*Preview, error) {
	if sampleLimit < 0 {
		sampleLimit = 0
	}
	preview := &Preview{Sample: make([]models.Contact, 0, sampleLimit)}
	if f.IsEmpty() {
		return preview, nil
	}

	err := scan(ctx, f, fetch, pageSize, func(c models.Contact) {
		preview.TotalCount++
		if len(preview.Sample) < sampleLimit {
			preview.Sample = append(preview.Sample, c)
		}
	})
	if err != nil {
		return nil, err
	}
	return preview, nil
}

// Collect returns every contact matching f, paging through the source.
func Collect(ctx context.Context, f *Filter, fetch PageFunc, pageSize int) ([]models.Contact, error) {
	matched := make([]models.Contact, 0)
	if f.IsEmpty() {
		return matched, nil
	}
	err := scan(ctx, f, fetch, pageSize, func(c models.Contact) {
		matched = append(matched, c)
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

func scan(ctx context.Context, f *Filter, fetch PageFunc, pageSize int, visit func(models.Contact)) error {
	if pageSize <= 0 {
		pageSize = 500
	}
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := fetch(ctx, afterID, pageSize)
		if err != nil {
			return fmt.Errorf("failed to load contacts page: %w", err)
		}
		for i := range page {
			if Matches(f, &page[i]) {
				visit(page[i])
			}
		}
		if len(page) < pageSize {
			return nil
		}
		afterID = page[len(page)-1].ID
	}
}
