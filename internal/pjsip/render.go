package pjsip

import (
	"strings"
)

// Render produces the canonical text of an endpoint's sections: the
// [id] section, then [id-auth] and [id-aor] when present, each group
// introduced by a comment header and each section followed by a blank
// line. Key order comes from the registry, never from the request, so
// two renders of the same logical entity are byte-identical. Defaults
// are written out explicitly; the telephony daemon's own defaults can
// drift between releases and we do not want to inherit that drift.
func Render(e *Endpoint) string {
	var sb strings.Builder

	renderSection(&sb, e, SectionEndpoint)
	if e.Auth != nil {
		renderSection(&sb, e, SectionAuth)
	}
	if e.AOR != nil {
		renderSection(&sb, e, SectionAOR)
	}
	return sb.String()
}

func renderSection(sb *strings.Builder, e *Endpoint, kind SectionKind) {
	custom := e.customPairs(kind)
	customKeys := make(map[string]bool, len(custom))
	for _, p := range custom {
		customKeys[p.Key] = true
	}

	sb.WriteByte('[')
	sb.WriteString(SectionName(e.ID, kind))
	sb.WriteString("]\n")
	sb.WriteString("type=")
	sb.WriteString(kind.String())
	sb.WriteByte('\n')

	for _, group := range groupsFor(kind) {
		var lines []string
		for _, fs := range specsFor(kind) {
			if fs.Group != group {
				continue
			}
			// A custom pair with the same key wins; it holds a value
			// the registry could not interpret and must survive
			// unchanged.
			if customKeys[fs.Key] {
				continue
			}
			if v, ok := fs.Value(e); ok {
				lines = append(lines, fs.Key+"="+v)
			}
		}
		if kind == SectionEndpoint && group == "core" {
			lines = append(lines, sectionRefs(e)...)
		}
		if len(lines) == 0 {
			continue
		}
		if kind == SectionEndpoint {
			sb.WriteString("; ")
			sb.WriteString(group)
			sb.WriteByte('\n')
		}
		for _, ln := range lines {
			sb.WriteString(ln)
			sb.WriteByte('\n')
		}
	}

	if len(custom) > 0 {
		sb.WriteString("; custom\n")
		for _, p := range custom {
			sb.WriteString(p.Key)
			sb.WriteByte('=')
			sb.WriteString(p.Value)
			sb.WriteByte('\n')
		}
	}

	sb.WriteByte('\n')
}

func groupsFor(kind SectionKind) []string {
	switch kind {
	case SectionAuth:
		return []string{"auth"}
	case SectionAOR:
		return []string{"aor"}
	default:
		return endpointGroups
	}
}

// sectionRefs returns the structural auth= and aors= references that
// close the core group.
func sectionRefs(e *Endpoint) []string {
	var refs []string
	if e.Auth != nil {
		refs = append(refs, "auth="+SectionName(e.ID, SectionAuth))
	}
	if e.AOR != nil {
		refs = append(refs, "aors="+SectionName(e.ID, SectionAOR))
	}
	return refs
}
