package pjsip

import "ferro.is/voxic/internal/confdoc"

// Redacted replaces secret values in read surfaces.
const Redacted = "********"

// Resolved returns the key/value pairs a section would render with,
// defaults applied and secrets redacted. Custom pairs follow the
// registry keys, shadowing them on collision, same as the renderer.
func Resolved(e *Endpoint, kind SectionKind) []confdoc.Pair {
	if kind == SectionAuth && e.Auth == nil {
		return nil
	}
	if kind == SectionAOR && e.AOR == nil {
		return nil
	}

	custom := e.customPairs(kind)
	shadowed := make(map[string]bool, len(custom))
	for _, p := range custom {
		shadowed[p.Key] = true
	}

	var out []confdoc.Pair
	for _, fs := range specsFor(kind) {
		if shadowed[fs.Key] {
			continue
		}
		v, ok := fs.Value(e)
		if !ok {
			continue
		}
		if fs.Secret {
			v = Redacted
		}
		out = append(out, confdoc.Pair{Key: fs.Key, Value: v})
	}
	return append(out, custom...)
}
