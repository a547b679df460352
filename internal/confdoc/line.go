package confdoc

// Kind classifies a single line of a configuration document.
type Kind int

const (
	// KindRaw is any line the parser does not positively recognize:
	// comments, blank lines, continuation garbage. Raw lines are never
	// interpreted and always render verbatim.
	KindRaw Kind = iota

	// KindSection is a [name] header, optionally followed by a
	// (template) reference which is captured as opaque text.
	KindSection

	// KindKeyValue is a key=value assignment.
	KindKeyValue
)

// Line is one physical line of the document. Text holds the original
// bytes without the terminator; Term holds the terminator ("\n",
// "\r\n", or "" for an unterminated final line). Rendering emits
// Text+Term, so a line that was never rewritten round-trips exactly.
type Line struct {
	Kind Kind
	Text string
	Term string

	// Section header fields (KindSection only).
	Name     string
	Template string

	// Assignment fields (KindKeyValue only). Key and Value are
	// trimmed and Value has any inline comment stripped; the original
	// spelling survives in Text.
	Key   string
	Value string
}

// Pair is an ordered key/value entry read out of a section span.
type Pair struct {
	Key   string
	Value string
}
