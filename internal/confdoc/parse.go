package confdoc

import (
	"regexp"
	"strings"
)

// sectionRe matches a [name] header with an optional (template)
// reference and an optional trailing comment.
var sectionRe = regexp.MustCompile(`^\[([^\]]+)\](?:\(([^)]*)\))?\s*(?:[;#].*)?$`)

// Document is an ordered sequence of lines. It is owned by exactly one
// operation at a time; mutating methods return a new Document and never
// alias the receiver's line slice.
type Document struct {
	lines []Line
}

// Parse builds a Document from file content. It never fails: lines it
// cannot classify become raw lines, which keeps unknown content opaque
// but byte-exact through a render.
func Parse(text string) *Document {
	d := &Document{}
	for len(text) > 0 {
		var body, term string
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			body, term = text[:i], "\n"
			if strings.HasSuffix(body, "\r") {
				body, term = body[:len(body)-1], "\r\n"
			}
			text = text[i+1:]
		} else {
			body, term, text = text, "", ""
		}
		d.lines = append(d.lines, classify(body, term))
	}
	return d
}

func classify(body, term string) Line {
	trimmed := strings.TrimSpace(body)

	// Comments and blank lines stay raw.
	if trimmed == "" || trimmed[0] == ';' || trimmed[0] == '#' {
		return Line{Kind: KindRaw, Text: body, Term: term}
	}

	if m := sectionRe.FindStringSubmatch(strings.TrimRight(body, " \t")); m != nil {
		return Line{
			Kind:     KindSection,
			Text:     body,
			Term:     term,
			Name:     m[1],
			Template: m[2],
		}
	}

	if i := strings.IndexByte(body, '='); i > 0 {
		key := strings.TrimSpace(body[:i])
		if key != "" && !strings.ContainsAny(key, "[]") {
			val := body[i+1:]
			// An unescaped semicolon starts an inline comment.
			if c := strings.IndexByte(val, ';'); c >= 0 {
				val = val[:c]
			}
			return Line{
				Kind:  KindKeyValue,
				Text:  body,
				Term:  term,
				Key:   key,
				Value: strings.TrimSpace(val),
			}
		}
	}

	return Line{Kind: KindRaw, Text: body, Term: term}
}

// Render reassembles the document. For any line that was not replaced
// this is the exact inverse of Parse.
func (d *Document) Render() string {
	var sb strings.Builder
	for _, ln := range d.lines {
		sb.WriteString(ln.Text)
		sb.WriteString(ln.Term)
	}
	return sb.String()
}

// Len returns the number of physical lines.
func (d *Document) Len() int {
	return len(d.lines)
}

// Line returns the line at index i.
func (d *Document) Line(i int) Line {
	return d.lines[i]
}
