package confdoc

import (
	"errors"
	"fmt"
)

// ErrInvalidSpan indicates a span list that violates the ReplaceSpans
// contract. This is a programming error, not bad user input.
var ErrInvalidSpan = errors.New("invalid span")

// Span is a contiguous run of lines belonging to one section: the
// header line at Start through (exclusive) End, which is the next
// section header or the end of the document.
type Span struct {
	Name  string
	Start int
	End   int
}

// Sections returns a span for every section header in document order.
func (d *Document) Sections() []Span {
	var spans []Span
	for i, ln := range d.lines {
		if ln.Kind != KindSection {
			continue
		}
		if n := len(spans); n > 0 {
			spans[n-1].End = i
		}
		spans = append(spans, Span{Name: ln.Name, Start: i, End: len(d.lines)})
	}
	return spans
}

// FindSections returns the spans of the named sections in document
// order. Names absent from the document are simply not represented.
func (d *Document) FindSections(names ...string) []Span {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var spans []Span
	for _, s := range d.Sections() {
		if wanted[s.Name] {
			spans = append(spans, s)
		}
	}
	return spans
}

// FindEntitySections returns the spans of the up-to-three sections
// belonging to the endpoint id: [id], [id-auth], [id-aor]. An empty
// result means the id is absent. A malformed file may yield fewer than
// three spans; callers must cope.
func (d *Document) FindEntitySections(id string) []Span {
	return d.FindSections(id, id+"-auth", id+"-aor")
}

// Values returns the key/value pairs inside a span in file order,
// including keys the caller's schema does not recognize.
func (d *Document) Values(s Span) []Pair {
	var pairs []Pair
	for i := s.Start; i < s.End && i < len(d.lines); i++ {
		if ln := d.lines[i]; ln.Kind == KindKeyValue {
			pairs = append(pairs, Pair{Key: ln.Key, Value: ln.Value})
		}
	}
	return pairs
}

// ReplaceSpans returns a new document with the given spans removed and
// the replacement text spliced in at the position of the first removed
// span. With no spans the replacement is appended at end of document
// (separated by a blank line when needed); with empty replacement the
// spans are simply deleted. Every line outside the spans is carried
// over untouched.
//
// The spans must be sorted by start, non-overlapping, in range, and
// each must begin on a section header.
func (d *Document) ReplaceSpans(spans []Span, replacement string) (*Document, error) {
	if err := d.checkSpans(spans); err != nil {
		return nil, err
	}

	repl := Parse(replacement).lines
	// The spliced block must not swallow the line that follows it.
	if n := len(repl); n > 0 && repl[n-1].Term == "" {
		repl[n-1].Term = "\n"
	}

	out := &Document{lines: make([]Line, 0, len(d.lines)+len(repl))}

	if len(spans) == 0 {
		out.lines = append(out.lines, d.lines...)
		if n := len(out.lines); n > 0 {
			if out.lines[n-1].Term == "" {
				out.lines[n-1].Term = "\n"
			}
			if out.lines[n-1].Text != "" {
				out.lines = append(out.lines, Line{Kind: KindRaw, Term: "\n"})
			}
		}
		out.lines = append(out.lines, repl...)
		return out, nil
	}

	removed := make([]bool, len(d.lines))
	for _, s := range spans {
		for i := s.Start; i < s.End; i++ {
			removed[i] = true
		}
	}

	for i, ln := range d.lines {
		if i == spans[0].Start {
			out.lines = append(out.lines, repl...)
		}
		if !removed[i] {
			out.lines = append(out.lines, ln)
		}
	}
	return out, nil
}

func (d *Document) checkSpans(spans []Span) error {
	prev := -1
	for _, s := range spans {
		if s.Start < 0 || s.End > len(d.lines) || s.Start >= s.End {
			return fmt.Errorf("%w: [%d,%d) out of range", ErrInvalidSpan, s.Start, s.End)
		}
		if s.Start <= prev {
			return fmt.Errorf("%w: spans not sorted or overlapping at %d", ErrInvalidSpan, s.Start)
		}
		if d.lines[s.Start].Kind != KindSection {
			return fmt.Errorf("%w: span at %d does not start on a section header", ErrInvalidSpan, s.Start)
		}
		prev = s.End - 1
	}
	return nil
}
