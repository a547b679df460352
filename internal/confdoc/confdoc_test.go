package confdoc

import (
	"errors"
	"strings"
	"testing"
)

const sampleConf = `; Managed by hand - do not break me
[global]
type=global
max_forwards=70

[transport-udp]
type=transport
protocol=udp  ; inline note
bind=0.0.0.0

[100]
type=endpoint
context=internal
allow=ulaw,alaw

[100-auth]
type=auth
username=100

[100-aor]
type=aor
max_contacts=1
`

func TestRenderIsInverseOfParse(t *testing.T) {
	cases := []string{
		sampleConf,
		"",
		"no trailing newline",
		"[a]\r\nkey=value\r\n",
		"; only a comment\n\n\n",
		"[tmpl](!)\n[ext](tmpl)\ntype=endpoint\n",
		"   weird indented garbage without equals\n\t\n",
		"key = value with spaces \n",
	}
	for _, in := range cases {
		if got := Parse(in).Render(); got != in {
			t.Errorf("round-trip mismatch:\n in: %q\nout: %q", in, got)
		}
	}
}

func TestClassify(t *testing.T) {
	d := Parse("[ext](tmpl)\nallow=ulaw ; narrowband\n; comment\nnonsense line\n")

	if ln := d.Line(0); ln.Kind != KindSection || ln.Name != "ext" || ln.Template != "tmpl" {
		t.Errorf("unexpected header line: %+v", ln)
	}
	if ln := d.Line(1); ln.Kind != KindKeyValue || ln.Key != "allow" || ln.Value != "ulaw" {
		t.Errorf("unexpected key/value line: %+v", ln)
	}
	if ln := d.Line(2); ln.Kind != KindRaw {
		t.Errorf("comment should be raw: %+v", ln)
	}
	if ln := d.Line(3); ln.Kind != KindRaw {
		t.Errorf("unrecognized line should be raw: %+v", ln)
	}
}

func TestFindEntitySections(t *testing.T) {
	d := Parse(sampleConf)

	spans := d.FindEntitySections("100")
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d: %+v", len(spans), spans)
	}
	want := []string{"100", "100-auth", "100-aor"}
	for i, s := range spans {
		if s.Name != want[i] {
			t.Errorf("span %d: expected %s, got %s", i, want[i], s.Name)
		}
	}
	// The last span runs to end of document.
	if spans[2].End != d.Len() {
		t.Errorf("expected final span to reach EOF, got %d/%d", spans[2].End, d.Len())
	}

	if got := d.FindEntitySections("200"); len(got) != 0 {
		t.Errorf("expected no spans for absent id, got %+v", got)
	}

	// Partial entity: endpoint section only.
	partial := Parse("[300]\ntype=endpoint\n")
	if got := partial.FindEntitySections("300"); len(got) != 1 {
		t.Errorf("expected 1 span for partial entity, got %d", len(got))
	}
}

func TestValuesIncludesUnknownKeys(t *testing.T) {
	d := Parse("[100]\ntype=endpoint\nx_custom_thing=keepme\n")
	spans := d.FindEntitySections("100")
	pairs := d.Values(spans[0])
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if pairs[1].Key != "x_custom_thing" || pairs[1].Value != "keepme" {
		t.Errorf("custom key not preserved: %+v", pairs[1])
	}
}

func TestReplaceSpansUpdate(t *testing.T) {
	d := Parse(sampleConf)
	spans := d.FindEntitySections("100")

	out, err := d.ReplaceSpans(spans, "[100]\ntype=endpoint\ncontext=sales\n")
	if err != nil {
		t.Fatalf("ReplaceSpans: %v", err)
	}

	text := out.Render()
	if !strings.Contains(text, "context=sales") {
		t.Error("replacement text missing")
	}
	if strings.Contains(text, "100-auth") {
		t.Error("replaced span content still present")
	}
	// Untouched sections survive byte for byte.
	for _, keep := range []string{"; Managed by hand - do not break me", "[transport-udp]", "protocol=udp  ; inline note"} {
		if !strings.Contains(text, keep) {
			t.Errorf("untouched content lost: %q", keep)
		}
	}
}

func TestReplaceSpansDelete(t *testing.T) {
	d := Parse(sampleConf)
	out, err := d.ReplaceSpans(d.FindEntitySections("100"), "")
	if err != nil {
		t.Fatalf("ReplaceSpans: %v", err)
	}
	if len(out.FindEntitySections("100")) != 0 {
		t.Error("entity sections still present after delete")
	}
	if !strings.Contains(out.Render(), "[transport-udp]") {
		t.Error("unrelated section lost on delete")
	}
}

func TestReplaceSpansAppend(t *testing.T) {
	d := Parse("[transport-udp]\ntype=transport")
	out, err := d.ReplaceSpans(nil, "[200]\ntype=endpoint\n")
	if err != nil {
		t.Fatalf("ReplaceSpans: %v", err)
	}
	text := out.Render()
	if !strings.HasPrefix(text, "[transport-udp]\ntype=transport\n") {
		t.Errorf("existing content damaged: %q", text)
	}
	if !strings.Contains(text, "\n\n[200]\n") {
		t.Errorf("expected blank separator before appended section: %q", text)
	}

	// Appending to an empty document inserts no separator.
	empty, err := Parse("").ReplaceSpans(nil, "[1]\ntype=endpoint\n")
	if err != nil {
		t.Fatalf("ReplaceSpans on empty: %v", err)
	}
	if got := empty.Render(); got != "[1]\ntype=endpoint\n" {
		t.Errorf("unexpected render of fresh document: %q", got)
	}
}

func TestReplaceSpansContract(t *testing.T) {
	d := Parse(sampleConf)
	spans := d.FindEntitySections("100")

	// Reversed order violates the sort requirement.
	rev := []Span{spans[2], spans[0]}
	if _, err := d.ReplaceSpans(rev, ""); !errors.Is(err, ErrInvalidSpan) {
		t.Errorf("expected ErrInvalidSpan for unsorted spans, got %v", err)
	}

	// Out of range.
	bad := []Span{{Name: "x", Start: 0, End: d.Len() + 5}}
	if _, err := d.ReplaceSpans(bad, ""); !errors.Is(err, ErrInvalidSpan) {
		t.Errorf("expected ErrInvalidSpan for out-of-range span, got %v", err)
	}

	// Span not starting on a header.
	bad = []Span{{Name: "x", Start: spans[0].Start + 1, End: spans[0].End}}
	if _, err := d.ReplaceSpans(bad, ""); !errors.Is(err, ErrInvalidSpan) {
		t.Errorf("expected ErrInvalidSpan for non-header span, got %v", err)
	}
}
