package pjsip

import (
	"fmt"
	"strconv"
	"strings"
)

// Validate checks an endpoint against the registry and returns every
// finding, never short-circuiting. Structural checks only: the point is
// to keep garbage out of the shared file, not to referee SIP semantics.
func Validate(e *Endpoint) []Violation {
	var out []Violation

	if e.ID == "" {
		out = append(out, Violation{Field: "id", Message: "must not be empty"})
	} else {
		if len(e.ID) > 50 {
			out = append(out, Violation{Field: "id", Message: "must be at most 50 characters"})
		}
		if !identRe.MatchString(e.ID) {
			out = append(out, Violation{Field: "id", Message: "may only contain letters, digits, underscore and hyphen"})
		}
	}

	for _, fs := range allSpecs() {
		v, ok := fs.get(e)
		if !ok {
			continue
		}
		field := fs.Section.String() + "." + fs.Key
		out = append(out, checkValue(fs, field, v)...)
	}

	// Codec names outside the whitelist are worth flagging but must
	// not block provisioning of a newer codec module.
	for _, c := range e.Media.Codecs {
		if !KnownCodecs[strings.ToLower(c)] {
			out = append(out, Violation{
				Field:   "endpoint.allow",
				Message: fmt.Sprintf("unknown codec %q", c),
				Warning: true,
			})
		}
	}

	return out
}

func checkValue(fs *FieldSpec, field, v string) []Violation {
	var out []Violation

	// A line break inside a value would smuggle extra lines, and
	// therefore arbitrary keys or whole sections, into the rendered
	// file. Rejected for every field type before anything else.
	for _, r := range v {
		if r < 0x20 || r == 0x7f {
			out = append(out, Violation{Field: field, Message: "must not contain control characters"})
			break
		}
	}

	switch fs.Type {
	case TypeEnum:
		ok := false
		for _, allowed := range fs.Enum {
			if v == allowed {
				ok = true
				break
			}
		}
		if !ok {
			out = append(out, Violation{
				Field:   field,
				Message: fmt.Sprintf("must be one of %s", strings.Join(fs.Enum, ", ")),
			})
		}
	case TypeInt:
		n, err := strconv.Atoi(v)
		if err != nil {
			out = append(out, Violation{Field: field, Message: "must be an integer"})
		} else if n < fs.Min || n > fs.Max {
			out = append(out, Violation{
				Field:   field,
				Message: fmt.Sprintf("must be between %d and %d", fs.Min, fs.Max),
			})
		}
	case TypeBool:
		if _, err := parseConfBool(v); err != nil {
			out = append(out, Violation{Field: field, Message: "must be yes or no"})
		}
	case TypeCodecs:
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" && !identRe.MatchString(c) {
				out = append(out, Violation{
					Field:   field,
					Message: fmt.Sprintf("codec %q may only contain letters, digits, underscore and hyphen", c),
				})
			}
		}
	}

	if fs.MinLen > 0 && len(v) < fs.MinLen {
		out = append(out, Violation{
			Field:   field,
			Message: fmt.Sprintf("must be at least %d characters", fs.MinLen),
		})
	}
	if fs.MaxLen > 0 && len(v) > fs.MaxLen {
		out = append(out, Violation{
			Field:   field,
			Message: fmt.Sprintf("must be at most %d characters", fs.MaxLen),
		})
	}
	if fs.Pattern != nil && v != "" && !fs.Pattern.MatchString(v) {
		out = append(out, Violation{Field: field, Message: "contains invalid characters"})
	}

	return out
}

// ValidateCreate runs Validate plus the create-only requirements: a
// new endpoint must carry credentials so the device can register.
func ValidateCreate(e *Endpoint) []Violation {
	out := Validate(e)
	if e.Auth == nil || e.Auth.Username == nil || *e.Auth.Username == "" {
		out = append(out, Violation{Field: "auth.username", Message: "required"})
	}
	if e.Auth == nil || e.Auth.Password == nil || *e.Auth.Password == "" {
		out = append(out, Violation{Field: "auth.password", Message: "required"})
	}
	return out
}
