// Package pjsip converts between structured SIP endpoint entities and
// their pjsip.conf section representation. An endpoint is up to three
// sections sharing one identifier: [id] (type=endpoint), [id-auth]
// (type=auth) and [id-aor] (type=aor).
//
// The field registry is the single source of truth for every key the
// package owns: its attribute group, value domain, default, and its
// position in the canonical render order. Keys outside the registry are
// carried as custom pairs and survive updates verbatim. Rendering is
// deterministic, so applying the same logical entity twice produces
// byte-identical text.
package pjsip
