// Package schema holds the per-project catalog of contact attributes: their
// declared types, the operators each type admits, and write-time validation
// of contact attribute maps.
package schema

import (
	"regexp"
	"sort"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
)

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// reserved keys resolve from contact fields, not from attributes
var reservedKeys = map[string]bool{
	"phone": true,
	"email": true,
}

var operatorsByType = map[models.AttributeType][]models.Operator{
	models.AttributeTypeString: {
		models.OperatorEquals, models.OperatorContains, models.OperatorStartsWith,
		models.OperatorEndsWith, models.OperatorIsEmpty, models.OperatorIsNotEmpty,
	},
	models.AttributeTypeNumber: {
		models.OperatorEquals, models.OperatorGt, models.OperatorGte,
		models.OperatorLt, models.OperatorLte, models.OperatorBetween,
	},
	models.AttributeTypeInteger: {
		models.OperatorEquals, models.OperatorGt, models.OperatorGte,
		models.OperatorLt, models.OperatorLte, models.OperatorBetween,
	},
	models.AttributeTypeDate: {
		models.OperatorBefore, models.OperatorAfter, models.OperatorBetween, models.OperatorIsEmpty,
	},
	models.AttributeTypeBoolean: {models.OperatorEquals},
	models.AttributeTypeEnum:    {models.OperatorEquals, models.OperatorIn},
	models.AttributeTypeArray: {
		models.OperatorContains, models.OperatorContainsAny, models.OperatorIsEmpty,
	},
}

// AllowedOperators returns the operators legal for attributes of type t.
func AllowedOperators(t models.AttributeType) []models.Operator {
	ops := operatorsByType[t]
	out := make([]models.Operator, len(ops))
	copy(out, ops)
	return out
}

// IsOperatorAllowed reports whether op is legal for type t.
func IsOperatorAllowed(t models.AttributeType, op models.Operator) bool {
	for _, allowed := range operatorsByType[t] {
		if allowed == op {
			return true
		}
	}
	return false
}

// IsReservedKey reports whether key names a contact field.
func IsReservedKey(key string) bool {
	return reservedKeys[key]
}

// Registry is an immutable-by-default view of one project's attributes.
// It is built per call from the project's stored schema and is never shared
// across tenants.
type Registry struct {
	attributes map[string]models.AttributeSchema
}

// NewRegistry builds a registry from already-stored attributes.
func NewRegistry(attributes []models.AttributeSchema) *Registry {
	r := &Registry{attributes: make(map[string]models.AttributeSchema, len(attributes))}
	for _, a := range attributes {
		r.attributes[a.Key] = a
	}
	return r
}

// Register validates a batch of new attributes and adds them to the registry.
// Nothing is added when any attribute is rejected.
func (r *Registry) Register(attributes []models.AttributeSchema) error {
	seen := make(map[string]bool, len(attributes))
	for _, a := range attributes {
		if err := ValidateDefinition(a); err != nil {
			return err
		}
		if seen[a.Key] {
			return apperrors.NewValidation(apperrors.CodeAttributeDuplicateKey, a.Key, "duplicate key in batch")
		}
		if _, exists := r.attributes[a.Key]; exists {
			return apperrors.NewValidation(apperrors.CodeAttributeDuplicateKey, a.Key, "attribute already registered")
		}
		seen[a.Key] = true
	}

	for _, a := range attributes {
		r.attributes[a.Key] = a
	}
	return nil
}

// Replace swaps the definition of an existing key after validating it.
func (r *Registry) Replace(a models.AttributeSchema) error {
	if _, exists := r.attributes[a.Key]; !exists {
		return apperrors.NewNotFound("attribute", a.Key)
	}
	if err := ValidateDefinition(a); err != nil {
		return err
	}
	r.attributes[a.Key] = a
	return nil
}

// ValidateDefinition checks a single attribute definition in isolation.
func ValidateDefinition(a models.AttributeSchema) error {
	if !keyPattern.MatchString(a.Key) {
		return apperrors.NewValidation(apperrors.CodeAttributeInvalidKey, a.Key,
			"key must start with a lowercase letter and contain only lowercase letters, digits and underscores")
	}
	if IsReservedKey(a.Key) {
		return apperrors.NewValidation(apperrors.CodeAttributeReservedKey, a.Key, "key is reserved for contact fields")
	}
	if !a.Type.Valid() {
		return apperrors.NewValidation(apperrors.CodeAttributeInvalidType, a.Key, "unknown type %q", a.Type)
	}

	switch a.Type {
	case models.AttributeTypeEnum:
		if len(a.Options) == 0 {
			return apperrors.NewValidation(apperrors.CodeAttributeMissingOptions, a.Key, "enum requires options")
		}
		seen := make(map[string]bool, len(a.Options))
		for _, opt := range a.Options {
			if opt == "" || seen[opt] {
				return apperrors.NewValidation(apperrors.CodeAttributeMissingOptions, a.Key, "enum options must be unique and non-empty")
			}
			seen[opt] = true
		}
	case models.AttributeTypeArray:
		if a.ItemType == "" {
			return apperrors.NewValidation(apperrors.CodeAttributeMissingItemType, a.Key, "array requires item_type")
		}
		if !a.ItemType.Valid() || a.ItemType == models.AttributeTypeArray || a.ItemType == models.AttributeTypeEnum {
			return apperrors.NewValidation(apperrors.CodeAttributeInvalidType, a.Key, "unsupported item_type %q", a.ItemType)
		}
	}
	return nil
}

// GetAttributes lists the registered attributes sorted by key. The returned
// slice is a copy.
func (r *Registry) GetAttributes() []models.AttributeSchema {
	out := make([]models.AttributeSchema, 0, len(r.attributes))
	for _, a := range r.attributes {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Lookup returns the attribute declared under key.
func (r *Registry) Lookup(key string) (models.AttributeSchema, bool) {
	a, ok := r.attributes[key]
	return a, ok
}

// Has reports whether key is declared, counting the reserved contact fields.
func (r *Registry) Has(key string) bool {
	if IsReservedKey(key) {
		return true
	}
	_, ok := r.attributes[key]
	return ok
}

// ValidateAttributes checks a contact attribute map against the registry and
// returns the normalized values to store.
func (r *Registry) ValidateAttributes(attrs map[string]interface{}) (models.JSON, error) {
	out := make(models.JSON, len(attrs))
	for key, raw := range attrs {
		def, ok := r.attributes[key]
		if !ok {
			return nil, apperrors.NewValidation(apperrors.CodeContactUnknownAttribute, key, "attribute is not declared")
		}
		if raw == nil {
			continue
		}
		v, err := Normalize(def, raw)
		if err != nil {
			return nil, apperrors.NewValidation(apperrors.CodeContactInvalidValue, key, "%v", err)
		}
		out[key] = v
	}

	for _, def := range r.attributes {
		if !def.Required {
			continue
		}
		if _, ok := out[def.Key]; !ok {
			return nil, apperrors.NewValidation(apperrors.CodeContactMissingRequired, def.Key, "attribute is required")
		}
	}
	return out, nil
}
