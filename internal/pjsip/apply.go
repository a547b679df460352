package pjsip

import (
	"fmt"

	"ferro.is/voxic/internal/confdoc"
)

// structuralKeys are keys the synchronizer derives itself; they are
// never treated as data when reading a section back.
func structuralKey(kind SectionKind, key string) bool {
	if key == "type" {
		return true
	}
	return kind == SectionEndpoint && (key == "auth" || key == "aors")
}

// FromDocument reads the endpoint with the given id out of a parsed
// document. Keys the registry cannot interpret, including registry
// keys with unparseable values, are preserved as custom pairs.
func FromDocument(d *confdoc.Document, id string) (*Endpoint, error) {
	spans := d.FindEntitySections(id)
	if len(spans) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	e := &Endpoint{ID: id}
	for _, span := range spans {
		kind := kindForSpan(id, span.Name)
		switch kind {
		case SectionAuth:
			e.ensureAuth()
		case SectionAOR:
			e.ensureAOR()
		}
		for _, p := range d.Values(span) {
			if structuralKey(kind, p.Key) {
				continue
			}
			fs := lookup(kind, p.Key)
			if fs == nil || fs.set(e, p.Value) != nil {
				e.addCustom(kind, p)
			}
		}
	}
	return e, nil
}

func kindForSpan(id, name string) SectionKind {
	switch name {
	case id + "-auth":
		return SectionAuth
	case id + "-aor":
		return SectionAOR
	default:
		return SectionEndpoint
	}
}

// List returns every endpoint entity in the document, in file order.
// Template sections ([name](!)) are definitions, not endpoints.
func List(d *confdoc.Document) []*Endpoint {
	var out []*Endpoint
	for _, span := range d.Sections() {
		if d.Line(span.Start).Template == "!" {
			continue
		}
		if !isType(d, span, "endpoint") {
			continue
		}
		if e, err := FromDocument(d, span.Name); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the endpoint with the given id.
func Get(d *confdoc.Document, id string) (*Endpoint, error) {
	return FromDocument(d, id)
}

func isType(d *confdoc.Document, span confdoc.Span, want string) bool {
	for _, p := range d.Values(span) {
		if p.Key == "type" {
			return p.Value == want
		}
	}
	return false
}

// ApplyCreate validates e and appends its rendered sections to the
// document. The id must be absent; warnings are returned alongside the
// new document and never block the write.
func ApplyCreate(d *confdoc.Document, e *Endpoint) (*confdoc.Document, []string, error) {
	violations := ValidateCreate(e)
	if Fatal(violations) {
		return nil, nil, &ValidationError{Violations: violations}
	}
	if len(d.FindEntitySections(e.ID)) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
	}
	if e.AOR == nil {
		e.ensureAOR()
	}

	out, err := d.ReplaceSpans(nil, Render(e))
	if err != nil {
		return nil, nil, err
	}
	return out, Warnings(violations), nil
}

// ApplyUpdate merges the patch over the endpoint currently in the
// document and re-renders its sections in place. Fields absent from the
// patch keep their current values; custom keys round-trip untouched.
// The merged entity is returned for the caller's post-write checks.
func ApplyUpdate(d *confdoc.Document, id string, patch *Endpoint) (*confdoc.Document, *Endpoint, []string, error) {
	spans := d.FindEntitySections(id)
	if len(spans) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	existing, err := FromDocument(d, id)
	if err != nil {
		return nil, nil, nil, err
	}

	merged := Merge(existing, patch)
	merged.ID = id

	violations := Validate(merged)
	if Fatal(violations) {
		return nil, nil, nil, &ValidationError{Violations: violations}
	}

	out, err := d.ReplaceSpans(spans, Render(merged))
	if err != nil {
		return nil, nil, nil, err
	}
	return out, merged, Warnings(violations), nil
}

// ApplyDelete removes every section belonging to the id.
func ApplyDelete(d *confdoc.Document, id string) (*confdoc.Document, error) {
	spans := d.FindEntitySections(id)
	if len(spans) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d.ReplaceSpans(spans, "")
}
