package pjsip

import (
	"ferro.is/voxic/internal/confdoc"
)

// SectionKind identifies which of an endpoint's sections a key lives in.
type SectionKind int

const (
	SectionEndpoint SectionKind = iota
	SectionAuth
	SectionAOR
)

func (k SectionKind) String() string {
	switch k {
	case SectionAuth:
		return "auth"
	case SectionAOR:
		return "aor"
	default:
		return "endpoint"
	}
}

// SectionName returns the section header name for an endpoint id, e.g.
// "101", "101-auth", "101-aor".
func SectionName(id string, kind SectionKind) string {
	switch kind {
	case SectionAuth:
		return id + "-auth"
	case SectionAOR:
		return id + "-aor"
	default:
		return id
	}
}

// CoreSettings are the endpoint's call-routing fields.
type CoreSettings struct {
	Context   *string `json:"context,omitempty"`
	Transport *string `json:"transport,omitempty"`
	CallerID  *string `json:"callerid,omitempty"`
}

// MediaSettings control codec negotiation.
type MediaSettings struct {
	Disallow *string  `json:"disallow,omitempty"`
	Codecs   []string `json:"codecs,omitempty"`
}

// RTPSettings cover NAT traversal and media path behavior.
type RTPSettings struct {
	Symmetric      *bool `json:"symmetric,omitempty"`
	ForceRport     *bool `json:"force_rport,omitempty"`
	RewriteContact *bool `json:"rewrite_contact,omitempty"`
	DirectMedia    *bool `json:"direct_media,omitempty"`
	ICESupport     *bool `json:"ice_support,omitempty"`
}

// RecordingSettings control on-demand call recording.
type RecordingSettings struct {
	OneTouch   *bool   `json:"one_touch,omitempty"`
	OnFeature  *string `json:"on_feature,omitempty"`
	OffFeature *string `json:"off_feature,omitempty"`
}

// PresenceSettings control identity headers and subscriptions.
type PresenceSettings struct {
	SendPAI        *bool `json:"send_pai,omitempty"`
	SendRPID       *bool `json:"send_rpid,omitempty"`
	AllowSubscribe *bool `json:"allow_subscribe,omitempty"`
}

// AuthSettings are the [id-auth] credential fields.
type AuthSettings struct {
	AuthType *string `json:"auth_type,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

// AORSettings are the [id-aor] registration fields.
type AORSettings struct {
	MaxContacts      *int  `json:"max_contacts,omitempty"`
	QualifyFrequency *int  `json:"qualify_frequency,omitempty"`
	RemoveExisting   *bool `json:"remove_existing,omitempty"`
}

// Endpoint is one logical telephony endpoint. Nil pointer fields mean
// "not explicitly set": on create the registry default applies, on
// update the existing value is preserved. A nil Auth or AOR means that
// companion section is absent.
type Endpoint struct {
	ID        string
	Core      CoreSettings
	Media     MediaSettings
	RTP       RTPSettings
	Recording RecordingSettings
	Presence  PresenceSettings
	Auth      *AuthSettings
	AOR       *AORSettings

	// Custom holds keys the registry does not own, per section, in
	// file order. They round-trip through updates unchanged.
	Custom map[SectionKind][]confdoc.Pair
}

func (e *Endpoint) ensureAuth() *AuthSettings {
	if e.Auth == nil {
		e.Auth = &AuthSettings{}
	}
	return e.Auth
}

func (e *Endpoint) ensureAOR() *AORSettings {
	if e.AOR == nil {
		e.AOR = &AORSettings{}
	}
	return e.AOR
}

func (e *Endpoint) customPairs(kind SectionKind) []confdoc.Pair {
	if e.Custom == nil {
		return nil
	}
	return e.Custom[kind]
}

func (e *Endpoint) addCustom(kind SectionKind, p confdoc.Pair) {
	if e.Custom == nil {
		e.Custom = make(map[SectionKind][]confdoc.Pair)
	}
	for i, existing := range e.Custom[kind] {
		if existing.Key == p.Key {
			e.Custom[kind][i] = p
			return
		}
	}
	e.Custom[kind] = append(e.Custom[kind], p)
}

// Clone returns a deep copy.
func (e *Endpoint) Clone() *Endpoint {
	out := &Endpoint{ID: e.ID}
	out.Core = CoreSettings{
		Context:   cloneStr(e.Core.Context),
		Transport: cloneStr(e.Core.Transport),
		CallerID:  cloneStr(e.Core.CallerID),
	}
	out.Media = MediaSettings{
		Disallow: cloneStr(e.Media.Disallow),
		Codecs:   append([]string(nil), e.Media.Codecs...),
	}
	if len(out.Media.Codecs) == 0 {
		out.Media.Codecs = nil
	}
	out.RTP = RTPSettings{
		Symmetric:      cloneBool(e.RTP.Symmetric),
		ForceRport:     cloneBool(e.RTP.ForceRport),
		RewriteContact: cloneBool(e.RTP.RewriteContact),
		DirectMedia:    cloneBool(e.RTP.DirectMedia),
		ICESupport:     cloneBool(e.RTP.ICESupport),
	}
	out.Recording = RecordingSettings{
		OneTouch:   cloneBool(e.Recording.OneTouch),
		OnFeature:  cloneStr(e.Recording.OnFeature),
		OffFeature: cloneStr(e.Recording.OffFeature),
	}
	out.Presence = PresenceSettings{
		SendPAI:        cloneBool(e.Presence.SendPAI),
		SendRPID:       cloneBool(e.Presence.SendRPID),
		AllowSubscribe: cloneBool(e.Presence.AllowSubscribe),
	}
	if e.Auth != nil {
		out.Auth = &AuthSettings{
			AuthType: cloneStr(e.Auth.AuthType),
			Username: cloneStr(e.Auth.Username),
			Password: cloneStr(e.Auth.Password),
		}
	}
	if e.AOR != nil {
		out.AOR = &AORSettings{
			MaxContacts:      cloneInt(e.AOR.MaxContacts),
			QualifyFrequency: cloneInt(e.AOR.QualifyFrequency),
			RemoveExisting:   cloneBool(e.AOR.RemoveExisting),
		}
	}
	for kind, pairs := range e.Custom {
		for _, p := range pairs {
			out.addCustom(kind, p)
		}
	}
	return out
}

// Merge overlays patch on base: every field the patch sets explicitly
// replaces the base value, everything else is preserved, including
// custom keys. Neither argument is modified.
func Merge(base, patch *Endpoint) *Endpoint {
	out := base.Clone()
	if patch.ID != "" {
		out.ID = patch.ID
	}
	for _, fs := range allSpecs() {
		if v, ok := fs.get(patch); ok {
			// Values read from a valid Endpoint always re-apply.
			_ = fs.set(out, v)
		}
	}
	for kind, pairs := range patch.Custom {
		for _, p := range pairs {
			out.addCustom(kind, p)
		}
	}
	return out
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
