package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttributeType is the declared type of a contact attribute.
type AttributeType string

const (
	AttributeTypeString  AttributeType = "string"
	AttributeTypeNumber  AttributeType = "number"
	AttributeTypeInteger AttributeType = "integer"
	AttributeTypeDate    AttributeType = "date"
	AttributeTypeBoolean AttributeType = "boolean"
	AttributeTypeEnum    AttributeType = "enum"
	AttributeTypeArray   AttributeType = "array"
)

// Valid reports whether t belongs to the closed set of attribute types.
func (t AttributeType) Valid() bool {
	switch t {
	case AttributeTypeString, AttributeTypeNumber, AttributeTypeInteger,
		AttributeTypeDate, AttributeTypeBoolean, AttributeTypeEnum, AttributeTypeArray:
		return true
	}
	return false
}

// Operator is a segment condition operator.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorContains    Operator = "contains"
	OperatorStartsWith  Operator = "starts_with"
	OperatorEndsWith    Operator = "ends_with"
	OperatorIsEmpty     Operator = "is_empty"
	OperatorIsNotEmpty  Operator = "is_not_empty"
	OperatorGt          Operator = "gt"
	OperatorGte         Operator = "gte"
	OperatorLt          Operator = "lt"
	OperatorLte         Operator = "lte"
	OperatorBetween     Operator = "between"
	OperatorBefore      Operator = "before"
	OperatorAfter       Operator = "after"
	OperatorIn          Operator = "in"
	OperatorContainsAny Operator = "contains_any"
)

// AttributeSchema declares one contact attribute of a project.
type AttributeSchema struct {
	ID        string        `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID string        `json:"project_id" gorm:"type:uuid;not null;uniqueIndex:idx_attribute_project_key"`
	Key       string        `json:"key" gorm:"type:varchar(100);not null;uniqueIndex:idx_attribute_project_key"`
	Label     string        `json:"label" gorm:"type:varchar(255)"`
	Type      AttributeType `json:"type" gorm:"type:varchar(20);not null"`
	Options   StringList    `json:"options,omitempty" gorm:"type:jsonb"`   // enum only
	ItemType  AttributeType `json:"item_type,omitempty" gorm:"type:varchar(20)"` // array only
	Required  bool          `json:"required" gorm:"default:false"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TableName specifies the table name for the AttributeSchema model
func (AttributeSchema) TableName() string {
	return "attribute_schemas"
}

// BeforeCreate assigns an ID when none was provided
func (a *AttributeSchema) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// AttributeDefinition is the client-supplied shape of an attribute.
type AttributeDefinition struct {
	Key      string        `json:"key" binding:"required" example:"monthly_income"`
	Label    string        `json:"label" example:"Monthly income"`
	Type     AttributeType `json:"type" binding:"required" example:"number"`
	Options  []string      `json:"options,omitempty"`
	ItemType AttributeType `json:"item_type,omitempty"`
	Required bool          `json:"required"`
}

// ToSchema converts the definition into an AttributeSchema for the project.
func (d AttributeDefinition) ToSchema(projectID string) AttributeSchema {
	return AttributeSchema{
		ProjectID: projectID,
		Key:       d.Key,
		Label:     d.Label,
		Type:      d.Type,
		Options:   StringList(d.Options),
		ItemType:  d.ItemType,
		Required:  d.Required,
	}
}

// RegisterAttributesRequest represents a batch attribute registration
type RegisterAttributesRequest struct {
	Attributes []AttributeDefinition `json:"attributes" binding:"required,min=1,dive"`
}

// UpdateAttributeRequest represents a partial attribute update. The key
// itself can never change.
type UpdateAttributeRequest struct {
	Label    *string        `json:"label"`
	Type     *AttributeType `json:"type"`
	Options  []string       `json:"options"`
	ItemType *AttributeType `json:"item_type"`
	Required *bool          `json:"required"`
}

// AttributeWithOperators is the listing shape used by filter builders.
type AttributeWithOperators struct {
	AttributeSchema
	Operators []Operator `json:"operators"`
}
