package pjsip

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FieldType is the value domain of a registry field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeIdent            // identifier charset: letters, digits, underscore, hyphen
	TypeEnum
	TypeInt
	TypeBool // rendered as yes/no
	TypeCodecs
)

var (
	identRe    = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_@.-]+$`)
	callerIDRe = regexp.MustCompile(`^[\w\s<>@.-]+$`)
)

// KnownCodecs is the codec whitelist. Codecs outside this set are
// accepted with a warning so a newer Asterisk module does not require a
// daemon release.
var KnownCodecs = map[string]bool{
	"ulaw": true,
	"alaw": true,
	"g722": true,
	"g729": true,
	"gsm":  true,
	"opus": true,
}

// FieldSpec describes one key the registry owns: where it lives, its
// value domain, its default, and how to read/write it on an Endpoint.
type FieldSpec struct {
	Key     string
	Group   string
	Section SectionKind
	Type    FieldType
	Default string // rendered when unset; empty means omit when unset
	Enum    []string
	Min     int
	Max     int
	MinLen  int
	MaxLen  int
	Pattern *regexp.Regexp
	Secret  bool

	get func(*Endpoint) (string, bool)
	set func(*Endpoint, string) error
}

// Value resolves the rendered value for e: the explicit value when set,
// otherwise the default. ok is false when nothing should be emitted.
func (fs *FieldSpec) Value(e *Endpoint) (string, bool) {
	if v, ok := fs.get(e); ok {
		return v, true
	}
	if fs.Default != "" {
		return fs.Default, true
	}
	return "", false
}

func boolConf(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func parseConfBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "on", "1":
		return true, nil
	case "no", "false", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a yes/no value: %q", v)
}

func getStr(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

func getBool(p *bool) (string, bool) {
	if p == nil {
		return "", false
	}
	return boolConf(*p), true
}

func getInt(p *int) (string, bool) {
	if p == nil {
		return "", false
	}
	return strconv.Itoa(*p), true
}

func setBool(dst func(*Endpoint) **bool) func(*Endpoint, string) error {
	return func(e *Endpoint, v string) error {
		b, err := parseConfBool(v)
		if err != nil {
			return err
		}
		*dst(e) = &b
		return nil
	}
}

func setInt(dst func(*Endpoint) **int) func(*Endpoint, string) error {
	return func(e *Endpoint, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("not an integer: %q", v)
		}
		*dst(e) = &n
		return nil
	}
}

func setStr(dst func(*Endpoint) **string) func(*Endpoint, string) error {
	return func(e *Endpoint, v string) error {
		*dst(e) = &v
		return nil
	}
}

// endpointGroups fixes the order of attribute groups in the [id]
// section. Group order and key order within a group are canonical.
var endpointGroups = []string{"core", "media", "rtp", "recording", "presence"}

var endpointSpecs = []*FieldSpec{
	{
		Key: "context", Group: "core", Section: SectionEndpoint,
		Type: TypeIdent, Default: "internal", Pattern: identRe,
		get: func(e *Endpoint) (string, bool) { return getStr(e.Core.Context) },
		set: setStr(func(e *Endpoint) **string { return &e.Core.Context }),
	},
	{
		Key: "transport", Group: "core", Section: SectionEndpoint,
		Type: TypeIdent, Pattern: identRe,
		get: func(e *Endpoint) (string, bool) { return getStr(e.Core.Transport) },
		set: setStr(func(e *Endpoint) **string { return &e.Core.Transport }),
	},
	{
		Key: "callerid", Group: "core", Section: SectionEndpoint,
		Type: TypeString, MaxLen: 100, Pattern: callerIDRe,
		get: func(e *Endpoint) (string, bool) { return getStr(e.Core.CallerID) },
		set: setStr(func(e *Endpoint) **string { return &e.Core.CallerID }),
	},
	{
		Key: "disallow", Group: "media", Section: SectionEndpoint,
		Type: TypeString, Default: "all",
		get: func(e *Endpoint) (string, bool) { return getStr(e.Media.Disallow) },
		set: setStr(func(e *Endpoint) **string { return &e.Media.Disallow }),
	},
	{
		Key: "allow", Group: "media", Section: SectionEndpoint,
		Type: TypeCodecs, Default: "ulaw,alaw",
		get: func(e *Endpoint) (string, bool) {
			if len(e.Media.Codecs) == 0 {
				return "", false
			}
			return strings.Join(e.Media.Codecs, ","), true
		},
		set: func(e *Endpoint, v string) error {
			var codecs []string
			for _, c := range strings.Split(v, ",") {
				if c = strings.TrimSpace(c); c != "" {
					codecs = append(codecs, c)
				}
			}
			e.Media.Codecs = codecs
			return nil
		},
	},
	{
		Key: "rtp_symmetric", Group: "rtp", Section: SectionEndpoint,
		Type: TypeBool, Default: "yes",
		get: func(e *Endpoint) (string, bool) { return getBool(e.RTP.Symmetric) },
		set: setBool(func(e *Endpoint) **bool { return &e.RTP.Symmetric }),
	},
	{
		Key: "force_rport", Group: "rtp", Section: SectionEndpoint,
		Type: TypeBool, Default: "yes",
		get: func(e *Endpoint) (string, bool) { return getBool(e.RTP.ForceRport) },
		set: setBool(func(e *Endpoint) **bool { return &e.RTP.ForceRport }),
	},
	{
		Key: "rewrite_contact", Group: "rtp", Section: SectionEndpoint,
		Type: TypeBool, Default: "yes",
		get: func(e *Endpoint) (string, bool) { return getBool(e.RTP.RewriteContact) },
		set: setBool(func(e *Endpoint) **bool { return &e.RTP.RewriteContact }),
	},
	{
		Key: "direct_media", Group: "rtp", Section: SectionEndpoint,
		Type: TypeBool, Default: "no",
		get: func(e *Endpoint) (string, bool) { return getBool(e.RTP.DirectMedia) },
		set: setBool(func(e *Endpoint) **bool { return &e.RTP.DirectMedia }),
	},
	{
		Key: "ice_support", Group: "rtp", Section: SectionEndpoint,
		Type: TypeBool, Default: "no",
		get: func(e *Endpoint) (string, bool) { return getBool(e.RTP.ICESupport) },
		set: setBool(func(e *Endpoint) **bool { return &e.RTP.ICESupport }),
	},
	{
		Key: "one_touch_recording", Group: "recording", Section: SectionEndpoint,
		Type: TypeBool, Default: "no",
		get: func(e *Endpoint) (string, bool) { return getBool(e.Recording.OneTouch) },
		set: setBool(func(e *Endpoint) **bool { return &e.Recording.OneTouch }),
	},
	{
		Key: "record_on_feature", Group: "recording", Section: SectionEndpoint,
		Type: TypeString, Default: "automixmon",
		get: func(e *Endpoint) (string, bool) { return getStr(e.Recording.OnFeature) },
		set: setStr(func(e *Endpoint) **string { return &e.Recording.OnFeature }),
	},
	{
		Key: "record_off_feature", Group: "recording", Section: SectionEndpoint,
		Type: TypeString, Default: "automixmon",
		get: func(e *Endpoint) (string, bool) { return getStr(e.Recording.OffFeature) },
		set: setStr(func(e *Endpoint) **string { return &e.Recording.OffFeature }),
	},
	{
		Key: "send_pai", Group: "presence", Section: SectionEndpoint,
		Type: TypeBool, Default: "no",
		get: func(e *Endpoint) (string, bool) { return getBool(e.Presence.SendPAI) },
		set: setBool(func(e *Endpoint) **bool { return &e.Presence.SendPAI }),
	},
	{
		Key: "send_rpid", Group: "presence", Section: SectionEndpoint,
		Type: TypeBool, Default: "no",
		get: func(e *Endpoint) (string, bool) { return getBool(e.Presence.SendRPID) },
		set: setBool(func(e *Endpoint) **bool { return &e.Presence.SendRPID }),
	},
	{
		Key: "allow_subscribe", Group: "presence", Section: SectionEndpoint,
		Type: TypeBool, Default: "yes",
		get: func(e *Endpoint) (string, bool) { return getBool(e.Presence.AllowSubscribe) },
		set: setBool(func(e *Endpoint) **bool { return &e.Presence.AllowSubscribe }),
	},
}

var authSpecs = []*FieldSpec{
	{
		Key: "auth_type", Group: "auth", Section: SectionAuth,
		Type: TypeEnum, Default: "userpass", Enum: []string{"userpass", "md5"},
		get: func(e *Endpoint) (string, bool) {
			if e.Auth == nil {
				return "", false
			}
			return getStr(e.Auth.AuthType)
		},
		set: func(e *Endpoint, v string) error {
			e.ensureAuth().AuthType = &v
			return nil
		},
	},
	{
		Key: "username", Group: "auth", Section: SectionAuth,
		Type: TypeString, MinLen: 1, MaxLen: 50, Pattern: usernameRe,
		get: func(e *Endpoint) (string, bool) {
			if e.Auth == nil {
				return "", false
			}
			return getStr(e.Auth.Username)
		},
		set: func(e *Endpoint, v string) error {
			e.ensureAuth().Username = &v
			return nil
		},
	},
	{
		Key: "password", Group: "auth", Section: SectionAuth,
		Type: TypeString, MinLen: 8, MaxLen: 128, Secret: true,
		get: func(e *Endpoint) (string, bool) {
			if e.Auth == nil {
				return "", false
			}
			return getStr(e.Auth.Password)
		},
		set: func(e *Endpoint, v string) error {
			e.ensureAuth().Password = &v
			return nil
		},
	},
}

var aorSpecs = []*FieldSpec{
	{
		Key: "max_contacts", Group: "aor", Section: SectionAOR,
		Type: TypeInt, Default: "1", Min: 1, Max: 10,
		get: func(e *Endpoint) (string, bool) {
			if e.AOR == nil {
				return "", false
			}
			return getInt(e.AOR.MaxContacts)
		},
		set: func(e *Endpoint, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("not an integer: %q", v)
			}
			e.ensureAOR().MaxContacts = &n
			return nil
		},
	},
	{
		Key: "qualify_frequency", Group: "aor", Section: SectionAOR,
		Type: TypeInt, Default: "60", Min: 0, Max: 300,
		get: func(e *Endpoint) (string, bool) {
			if e.AOR == nil {
				return "", false
			}
			return getInt(e.AOR.QualifyFrequency)
		},
		set: func(e *Endpoint, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("not an integer: %q", v)
			}
			e.ensureAOR().QualifyFrequency = &n
			return nil
		},
	},
	{
		Key: "remove_existing", Group: "aor", Section: SectionAOR,
		Type: TypeBool, Default: "yes",
		get: func(e *Endpoint) (string, bool) {
			if e.AOR == nil {
				return "", false
			}
			return getBool(e.AOR.RemoveExisting)
		},
		set: func(e *Endpoint, v string) error {
			b, err := parseConfBool(v)
			if err != nil {
				return err
			}
			e.ensureAOR().RemoveExisting = &b
			return nil
		},
	},
}

var specCache []*FieldSpec

func allSpecs() []*FieldSpec {
	if specCache == nil {
		specCache = make([]*FieldSpec, 0, len(endpointSpecs)+len(authSpecs)+len(aorSpecs))
		specCache = append(specCache, endpointSpecs...)
		specCache = append(specCache, authSpecs...)
		specCache = append(specCache, aorSpecs...)
	}
	return specCache
}

func specsFor(kind SectionKind) []*FieldSpec {
	switch kind {
	case SectionAuth:
		return authSpecs
	case SectionAOR:
		return aorSpecs
	default:
		return endpointSpecs
	}
}

func lookup(kind SectionKind, key string) *FieldSpec {
	for _, fs := range specsFor(kind) {
		if fs.Key == key {
			return fs
		}
	}
	return nil
}
