// Package confdoc is a line-oriented model of an Asterisk-style
// configuration file. It exists to make structural edits to a file that
// humans also edit by hand: any line the parser does not positively
// recognize is kept as an opaque raw line, and an unmodified document
// always renders back to the exact bytes it was parsed from.
//
// The model deliberately understands only the pjsip.conf dialect:
// [section] headers with an optional (template) suffix, key=value
// lines, and comment/blank lines. Everything else is raw text. The
// single mutation primitive is ReplaceSpans, which splices replacement
// text over a set of section spans and leaves every other line in
// place by reference.
package confdoc
