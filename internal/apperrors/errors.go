// Package apperrors defines the error taxonomy shared by the campaign engine.
// Every error carries a machine-readable Code so handlers can map it to a
// transport status without string matching.
package apperrors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// Attribute schema errors
	CodeAttributeDuplicateKey    Code = "ATTRIBUTE_DUPLICATE_KEY"
	CodeAttributeInvalidKey      Code = "ATTRIBUTE_INVALID_KEY"
	CodeAttributeReservedKey     Code = "ATTRIBUTE_RESERVED_KEY"
	CodeAttributeInvalidType     Code = "ATTRIBUTE_INVALID_TYPE"
	CodeAttributeMissingOptions  Code = "ATTRIBUTE_ENUM_MISSING_OPTIONS"
	CodeAttributeMissingItemType Code = "ATTRIBUTE_ARRAY_MISSING_ITEM_TYPE"
	CodeAttributeInUse           Code = "ATTRIBUTE_IN_USE"

	// Contact errors
	CodeContactUnknownAttribute Code = "CONTACT_UNKNOWN_ATTRIBUTE"
	CodeContactInvalidValue     Code = "CONTACT_INVALID_ATTRIBUTE_VALUE"
	CodeContactMissingRequired  Code = "CONTACT_MISSING_REQUIRED_ATTRIBUTE"
	CodeContactMissingRecipient Code = "CONTACT_MISSING_RECIPIENT"

	// Segment errors
	CodeSegmentUnknownAttribute Code = "SEGMENT_UNKNOWN_ATTRIBUTE"
	CodeSegmentIllegalOperator  Code = "SEGMENT_ILLEGAL_OPERATOR"
	CodeSegmentInvalidValue     Code = "SEGMENT_INVALID_VALUE"
	CodeSegmentInvalidLogic     Code = "SEGMENT_INVALID_LOGIC"
	CodeSegmentEmpty            Code = "SEGMENT_EMPTY"

	// Template errors
	CodeTemplateEmpty             Code = "TEMPLATE_EMPTY"
	CodeTemplateUnicodeNotAllowed Code = "TEMPLATE_UNICODE_NOT_ALLOWED"
	CodeTemplateUnknownVariable   Code = "TEMPLATE_UNKNOWN_VARIABLE"

	// Campaign errors
	CodeCampaignInvalidField            Code = "CAMPAIGN_INVALID_FIELD"
	CodeCampaignInvalidStatusTransition Code = "CAMPAIGN_INVALID_STATUS_TRANSITION"
	CodeCampaignRunInProgress           Code = "CAMPAIGN_RUN_IN_PROGRESS"

	// Scheduling errors
	CodeScheduleInvalidInterval Code = "SCHEDULE_INVALID_INTERVAL"
	CodeScheduleInvalidWindow   Code = "SCHEDULE_INVALID_RUN_WINDOW"
	CodeScheduleInvalidCooldown Code = "SCHEDULE_INVALID_COOLDOWN"
	CodeScheduleEndsInPast      Code = "SCHEDULE_ENDS_AT_IN_PAST"
	CodeScheduleInvalidTimezone Code = "SCHEDULE_INVALID_TIMEZONE"

	// Provider errors
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	CodeProviderTimeout     Code = "PROVIDER_TIMEOUT"
	CodeProviderRejected    Code = "PROVIDER_REJECTED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// ValidationError reports input that violates the attribute schema, a
// segment filter rule, or a template contract.
type ValidationError struct {
	Code    Code
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// NewValidation creates a ValidationError.
func NewValidation(code Code, field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// StateTransitionError reports an operation that is not legal for the
// campaign's current status or type.
type StateTransitionError struct {
	Code      Code
	Operation string
	From      string
	Message   string
}

func (e *StateTransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s campaign in status %q", e.Operation, e.From)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// NewStateTransition creates a StateTransitionError.
func NewStateTransition(operation, from, message string) *StateTransitionError {
	return &StateTransitionError{
		Code:      CodeCampaignInvalidStatusTransition,
		Operation: operation,
		From:      from,
		Message:   message,
	}
}

// ProviderError wraps a failed send. It is recorded per message and is
// retryable through RetryFailed.
type ProviderError struct {
	Code    Code
	Channel string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %v", e.Channel, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProvider creates a ProviderError.
func NewProvider(code Code, channel string, err error) *ProviderError {
	return &ProviderError{Code: code, Channel: channel, Err: err}
}

// SchedulingError reports a malformed schedule detected at save or
// activation time.
type SchedulingError struct {
	Code    Code
	Field   string
	Message string
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("invalid schedule (%s): %s", e.Field, e.Message)
}

// NewScheduling creates a SchedulingError.
func NewScheduling(code Code, field, format string, args ...interface{}) *SchedulingError {
	return &SchedulingError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing tenant-scoped resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NewNotFound creates a NotFoundError.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// CodeOf returns the Code carried by err, or an empty Code.
func CodeOf(err error) Code {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	var se *StateTransitionError
	if errors.As(err, &se) {
		return se.Code
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	var sch *SchedulingError
	if errors.As(err, &sch) {
		return sch.Code
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return CodeNotFound
	}
	return ""
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStateTransition reports whether err is a StateTransitionError.
func IsStateTransition(err error) bool {
	var se *StateTransitionError
	return errors.As(err, &se)
}

// IsScheduling reports whether err is a SchedulingError.
func IsScheduling(err error) bool {
	var se *SchedulingError
	return errors.As(err, &se)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsProvider reports whether err is a ProviderError.
func IsProvider(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
