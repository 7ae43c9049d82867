package segment

import (
	"context"
	"sort"
	"testing"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *schema.Registry {
	return schema.NewRegistry([]models.AttributeSchema{
		{Key: "first_name", Type: models.AttributeTypeString},
		{Key: "city", Type: models.AttributeTypeString},
		{Key: "age", Type: models.AttributeTypeInteger},
		{Key: "income", Type: models.AttributeTypeNumber},
		{Key: "signup_date", Type: models.AttributeTypeDate},
		{Key: "vip", Type: models.AttributeTypeBoolean},
		{Key: "tier", Type: models.AttributeTypeEnum, Options: models.StringList{"gold", "silver", "bronze"}},
		{Key: "products", Type: models.AttributeTypeArray, ItemType: models.AttributeTypeString},
	})
}

func testContacts() []models.Contact {
	return []models.Contact{
		{ID: "c1", Phone: "+994501111111", Attributes: models.JSON{
			"first_name": "Elvin", "city": "Baku", "age": float64(30), "income": 2500.0,
			"signup_date": "2024-03-01T00:00:00Z", "vip": true, "tier": "gold",
			"products": []interface{}{"loan", "card"},
		}},
		{ID: "c2", Phone: "+994502222222", Attributes: models.JSON{
			"first_name": "Aysel", "city": "Ganja", "age": float64(45), "income": 900.0,
			"signup_date": "2023-01-15T00:00:00Z", "vip": false, "tier": "silver",
			"products": []interface{}{"deposit"},
		}},
		{ID: "c3", Email: "rashad@example.com", Attributes: models.JSON{
			"first_name": "Rashad", "age": float64(22), "tier": "bronze",
		}},
		{ID: "c4", Phone: "+994504444444", Attributes: models.JSON{}},
	}
}

func build(t *testing.T, raw models.SegmentFilter) *Filter {
	t.Helper()
	f, err := BuildFilter(raw, testRegistry())
	require.NoError(t, err)
	return f
}

func ids(contacts []models.Contact) []string {
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, c.ID)
	}
	return out
}

func TestEvaluateConditionOperators(t *testing.T) {
	tests := []struct {
		name string
		cond models.FilterCondition
		want []string
	}{
		{"string equals is case-insensitive", models.FilterCondition{Key: "city", Operator: models.OperatorEquals, Value: "baku"}, []string{"c1"}},
		{"string contains", models.FilterCondition{Key: "first_name", Operator: models.OperatorContains, Value: "ys"}, []string{"c2"}},
		{"string starts_with", models.FilterCondition{Key: "first_name", Operator: models.OperatorStartsWith, Value: "Ra"}, []string{"c3"}},
		{"string ends_with", models.FilterCondition{Key: "first_name", Operator: models.OperatorEndsWith, Value: "vin"}, []string{"c1"}},
		{"string is_empty treats absence as empty", models.FilterCondition{Key: "city", Operator: models.OperatorIsEmpty}, []string{"c3", "c4"}},
		{"string is_not_empty", models.FilterCondition{Key: "city", Operator: models.OperatorIsNotEmpty}, []string{"c1", "c2"}},
		{"integer gt", models.FilterCondition{Key: "age", Operator: models.OperatorGt, Value: 29}, []string{"c1", "c2"}},
		{"integer lte", models.FilterCondition{Key: "age", Operator: models.OperatorLte, Value: float64(30)}, []string{"c1", "c3"}},
		{"number between inclusive", models.FilterCondition{Key: "income", Operator: models.OperatorBetween, Value: []interface{}{900, 2500}}, []string{"c1", "c2"}},
		{"date before", models.FilterCondition{Key: "signup_date", Operator: models.OperatorBefore, Value: "2024-01-01"}, []string{"c2"}},
		{"date after", models.FilterCondition{Key: "signup_date", Operator: models.OperatorAfter, Value: "2024-01-01"}, []string{"c1"}},
		{"date is_empty", models.FilterCondition{Key: "signup_date", Operator: models.OperatorIsEmpty}, []string{"c3", "c4"}},
		{"boolean equals", models.FilterCondition{Key: "vip", Operator: models.OperatorEquals, Value: false}, []string{"c2"}},
		{"enum in", models.FilterCondition{Key: "tier", Operator: models.OperatorIn, Value: []interface{}{"gold", "bronze"}}, []string{"c1", "c3"}},
		{"array contains", models.FilterCondition{Key: "products", Operator: models.OperatorContains, Value: "loan"}, []string{"c1"}},
		{"array contains_any", models.FilterCondition{Key: "products", Operator: models.OperatorContainsAny, Value: []interface{}{"deposit", "card"}}, []string{"c1", "c2"}},
		{"array is_empty", models.FilterCondition{Key: "products", Operator: models.OperatorIsEmpty}, []string{"c3", "c4"}},
		{"phone field", models.FilterCondition{Key: "phone", Operator: models.OperatorStartsWith, Value: "+99450222"}, []string{"c2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := build(t, models.SegmentFilter{Logic: models.LogicAnd, Conditions: []models.FilterCondition{tt.cond}})
			assert.Equal(t, tt.want, ids(Evaluate(f, testContacts())))
		})
	}
}

func TestMissingAttributeIsFalse(t *testing.T) {
	f := build(t, models.SegmentFilter{Conditions: []models.FilterCondition{
		{Key: "income", Operator: models.OperatorLt, Value: 1000000},
	}})
	assert.NotContains(t, ids(Evaluate(f, testContacts())), "c3")
	assert.NotContains(t, ids(Evaluate(f, testContacts())), "c4")
}

func TestEvaluateIsPure(t *testing.T) {
	f := build(t, models.SegmentFilter{Logic: models.LogicOr, Conditions: []models.FilterCondition{
		{Key: "tier", Operator: models.OperatorEquals, Value: "gold"},
		{Key: "age", Operator: models.OperatorLt, Value: 25},
	}})
	contacts := testContacts()

	first := Evaluate(f, contacts)
	second := Evaluate(f, contacts)
	assert.Equal(t, first, second)
	assert.Equal(t, testContacts(), contacts)
}

func TestAndIsIntersectionOrIsUnion(t *testing.T) {
	conds := []models.FilterCondition{
		{Key: "age", Operator: models.OperatorGte, Value: 25},
		{Key: "tier", Operator: models.OperatorIn, Value: []interface{}{"gold", "bronze"}},
		{Key: "vip", Operator: models.OperatorEquals, Value: true},
	}
	contacts := testContacts()

	individual := make([]map[string]bool, 0, len(conds))
	for _, c := range conds {
		f := build(t, models.SegmentFilter{Conditions: []models.FilterCondition{c}})
		set := map[string]bool{}
		for _, id := range ids(Evaluate(f, contacts)) {
			set[id] = true
		}
		individual = append(individual, set)
	}

	var wantAnd, wantOr []string
	for _, c := range contacts {
		all, any := true, false
		for _, set := range individual {
			all = all && set[c.ID]
			any = any || set[c.ID]
		}
		if all {
			wantAnd = append(wantAnd, c.ID)
		}
		if any {
			wantOr = append(wantOr, c.ID)
		}
	}

	and := ids(Evaluate(build(t, models.SegmentFilter{Logic: models.LogicAnd, Conditions: conds}), contacts))
	or := ids(Evaluate(build(t, models.SegmentFilter{Logic: models.LogicOr, Conditions: conds}), contacts))
	sort.Strings(and)
	sort.Strings(or)
	assert.Equal(t, wantAnd, and)
	assert.Equal(t, wantOr, or)
}

func TestEmptyFilterMatchesNothing(t *testing.T) {
	f := build(t, models.SegmentFilter{Logic: models.LogicAnd})
	assert.Empty(t, Evaluate(f, testContacts()))
}

func TestBuildFilterRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  models.SegmentFilter
		code apperrors.Code
	}{
		{"unknown key", models.SegmentFilter{Conditions: []models.FilterCondition{{Key: "shoe_size", Operator: models.OperatorEquals, Value: 42}}}, apperrors.CodeSegmentUnknownAttribute},
		{"illegal operator", models.SegmentFilter{Conditions: []models.FilterCondition{{Key: "vip", Operator: models.OperatorGt, Value: 1}}}, apperrors.CodeSegmentIllegalOperator},
		{"wrong value shape", models.SegmentFilter{Conditions: []models.FilterCondition{{Key: "age", Operator: models.OperatorGt, Value: "old"}}}, apperrors.CodeSegmentInvalidValue},
		{"inverted range", models.SegmentFilter{Conditions: []models.FilterCondition{{Key: "age", Operator: models.OperatorBetween, Value: []interface{}{50, 18}}}}, apperrors.CodeSegmentInvalidValue},
		{"enum option outside set", models.SegmentFilter{Conditions: []models.FilterCondition{{Key: "tier", Operator: models.OperatorEquals, Value: "platinum"}}}, apperrors.CodeSegmentInvalidValue},
		{"missing value", models.SegmentFilter{Conditions: []models.FilterCondition{{Key: "city", Operator: models.OperatorEquals}}}, apperrors.CodeSegmentInvalidValue},
		{"bad logic", models.SegmentFilter{Logic: "XOR"}, apperrors.CodeSegmentInvalidLogic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildFilter(tt.raw, testRegistry())
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func pager(contacts []models.Contact, calls *int) PageFunc {
	return func(ctx context.Context, afterID string, limit int) ([]models.Contact, error) {
		*calls++
		start := 0
		if afterID != "" {
			for i, c := range contacts {
				if c.ID == afterID {
					start = i + 1
				}
			}
		}
		end := start + limit
		if end > len(contacts) {
			end = len(contacts)
		}
		return contacts[start:end], nil
	}
}

func TestPreviewCountPages(t *testing.T) {
	f := build(t, models.SegmentFilter{Conditions: []models.FilterCondition{
		{Key: "first_name", Operator: models.OperatorIsNotEmpty},
	}})

	calls := 0
	preview, err := PreviewCount(context.Background(), f, pager(testContacts(), &calls), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, preview.TotalCount)
	assert.Equal(t, []string{"c1", "c2"}, ids(preview.Sample))
	assert.Equal(t, 3, calls)
}

func TestCollectMatchesEvaluate(t *testing.T) {
	f := build(t, models.SegmentFilter{Conditions: []models.FilterCondition{
		{Key: "age", Operator: models.OperatorGt, Value: 20},
	}})
	calls := 0
	got, err := Collect(context.Background(), f, pager(testContacts(), &calls), 3)
	require.NoError(t, err)
	assert.Equal(t, Evaluate(f, testContacts()), got)
}
