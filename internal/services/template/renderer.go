// Package template renders campaign message templates per contact and
// computes SMS encoding, segment counts and cost.
package template

import (
	"regexp"
	"sort"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
	"github.com/finportal/marketing-console-backend/internal/services/schema"
	"github.com/sirupsen/logrus"
)

// {{key}} with optional whitespace inside the braces
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// RenderResult is the rendered text plus the placeholders that could not be
// resolved. Unresolved placeholders are replaced with an empty string.
type RenderResult struct {
	Text       string   `json:"text"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// Warnings formats the unresolved placeholders as human readable warnings.
func (r RenderResult) Warnings() []string {
	if len(r.Unresolved) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Unresolved))
	for _, key := range r.Unresolved {
		out = append(out, "unresolved placeholder {{"+key+"}} rendered as empty")
	}
	return out
}

// Render substitutes every {{key}} in tpl. {{phone}} and {{email}} resolve
// from the contact fields, other keys from the contact attributes.
func Render(tpl string, contact *models.Contact) RenderResult {
	var attrs map[string]interface{}
	phone, email := "", ""
	if contact != nil {
		attrs = contact.Attributes
		phone, email = contact.Phone, contact.Email
	}
	return RenderAttributes(tpl, attrs, phone, email)
}

// RenderAttributes is Render over a bare attribute map.
func RenderAttributes(tpl string, attrs map[string]interface{}, phone, email string) RenderResult {
	var unresolved []string
	seen := map[string]bool{}

	text := placeholderPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		switch key {
		case "phone":
			if phone != "" {
				return phone
			}
		case "email":
			if email != "" {
				return email
			}
		default:
			if v, ok := attrs[key]; ok && v != nil {
				return schema.Stringify(v)
			}
		}
		if !seen[key] {
			seen[key] = true
			unresolved = append(unresolved, key)
		}
		return ""
	})

	if len(unresolved) > 0 {
		logrus.WithField("placeholders", unresolved).Warn("Template rendered with unresolved placeholders")
	}
	return RenderResult{Text: text, Unresolved: unresolved}
}

// ExtractVariables returns the distinct placeholder keys used by tpl, sorted.
func ExtractVariables(tpl string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(tpl, -1)
	seen := make(map[string]bool, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	sort.Strings(keys)
	return keys
}

// CheckVariables rejects placeholders that name neither a declared attribute
// nor a contact field.
func CheckVariables(tpl string, reg *schema.Registry) error {
	for _, key := range ExtractVariables(tpl) {
		if !reg.Has(key) {
			return apperrors.NewValidation(apperrors.CodeTemplateUnknownVariable, key,
				"template references undeclared attribute {{%s}}", key)
		}
	}
	return nil
}
