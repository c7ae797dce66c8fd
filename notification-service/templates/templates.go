package templates

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/collabhub/collabhub-server/utils-go"
	"github.com/rs/zerolog/log"
)

var ErrUnknownTemplate = errors.New("unknown notification template")

// MissingFieldError names the first required payload field that was absent
// or nil. Checks run in RequiredFields order, so the reported field is
// deterministic.
type MissingFieldError struct {
	Field string
}

func (e MissingFieldError) Error() string {
	return "missing required payload field: " + e.Field
}

// RenderError reports a pattern placeholder with no payload value. The
// registry asserts placeholders against required fields at startup, so
// hitting this means the validator was skipped.
type RenderError struct {
	Placeholder string
}

func (e RenderError) Error() string {
	return "no payload value for placeholder: " + e.Placeholder
}

type Template struct {
	TitlePattern   string
	BodyPattern    string
	RequiredFields []string
}

var placeholderPattern = regexp.MustCompile(`\{\{([a-z_]+)\}\}`)

var registry = map[Type]Template{
	ProjectInvitation: {
		TitlePattern:   "Project invitation",
		BodyPattern:    "You have been invited to join {{project_name}}.",
		RequiredFields: []string{"project_name"},
	},
	ProjectRemoval: {
		TitlePattern:   "Removed from project",
		BodyPattern:    "You are no longer a member of {{project_name}}.",
		RequiredFields: []string{"project_name"},
	},
	JoinRequest: {
		TitlePattern:   "New join request",
		BodyPattern:    "{{user_name}} asked to join {{project_name}}.",
		RequiredFields: []string{"user_name", "project_name"},
	},
	JoinRequestApproved: {
		TitlePattern:   "Join request approved",
		BodyPattern:    "Your request to join {{project_name}} was approved.",
		RequiredFields: []string{"project_name"},
	},
	JoinRequestRejected: {
		TitlePattern:   "Join request rejected",
		BodyPattern:    "Your request to join {{project_name}} was rejected.",
		RequiredFields: []string{"project_name"},
	},
	ProjectAnnouncement: {
		TitlePattern:   "Announcement: {{project_name}}",
		BodyPattern:    "{{message}}",
		RequiredFields: []string{"project_name", "message"},
	},
	SystemAlert: {
		TitlePattern:   "System alert",
		BodyPattern:    "{{message}}",
		RequiredFields: []string{"message"},
	},
}

func init() {
	for typ, tmpl := range registry {
		for _, field := range tmpl.Placeholders() {
			if utils.IsInList(field, &tmpl.RequiredFields) == -1 {
				log.Panic().
					Str("type", string(typ)).
					Str("placeholder", field).
					Msg("Template placeholder not covered by required fields")
			}
		}
	}
}

// Get resolves the template for a registered type.
func Get(t Type) (Template, error) {
	tmpl, exists := registry[t]
	if !exists {
		return Template{}, ErrUnknownTemplate
	}
	return tmpl, nil
}

// RequiredFields maps every registered type to the payload fields a caller
// must supply, for the templates listing endpoint.
func RequiredFields() map[Type][]string {
	out := make(map[Type][]string, len(registry))
	for typ, tmpl := range registry {
		fields := make([]string, len(tmpl.RequiredFields))
		copy(fields, tmpl.RequiredFields)
		out[typ] = fields
	}
	return out
}

// Placeholders extracts the distinct field names referenced by the title and
// body patterns, in order of first appearance.
func (t Template) Placeholders() []string {
	fields := make([]string, 0, len(t.RequiredFields))
	for _, match := range placeholderPattern.FindAllStringSubmatch(t.TitlePattern+" "+t.BodyPattern, -1) {
		if utils.IsInList(match[1], &fields) == -1 {
			fields = append(fields, match[1])
		}
	}
	return fields
}

// ValidatePayload fails on the first required field missing from the payload
// or carrying a nil value. Extra payload fields are allowed.
func (t Template) ValidatePayload(payload map[string]interface{}) error {
	for _, field := range t.RequiredFields {
		value, present := payload[field]
		if !present || value == nil {
			return MissingFieldError{Field: field}
		}
	}
	return nil
}

// Render substitutes every placeholder with the payload value's string form.
// Callers must validate the payload first; an uncovered placeholder is an
// error, never an empty substitution.
func (t Template) Render(payload map[string]interface{}) (string, string, error) {
	title, err := substitute(t.TitlePattern, payload)
	if err != nil {
		return "", "", err
	}

	body, err := substitute(t.BodyPattern, payload)
	if err != nil {
		return "", "", err
	}

	return title, body, nil
}

func substitute(pattern string, payload map[string]interface{}) (string, error) {
	var missing string
	out := placeholderPattern.ReplaceAllStringFunc(pattern, func(match string) string {
		field := strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}")
		value, present := payload[field]
		if !present || value == nil {
			if missing == "" {
				missing = field
			}
			return match
		}
		return fmt.Sprint(value)
	})

	if missing != "" {
		return "", RenderError{Placeholder: missing}
	}
	return out, nil
}
