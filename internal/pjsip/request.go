package pjsip

// Request is the wire shape for create and update calls. Two input
// styles are accepted: the flat legacy field set used by the first
// generation of provisioning clients, and grouped attribute objects.
// Both normalize through the registry onto the same Endpoint; when a
// flat field and a grouped field address the same key, the grouped
// value wins.
type Request struct {
	ID string `json:"id"`

	// Legacy flat fields.
	Username    *string  `json:"username,omitempty"`
	Password    *string  `json:"password,omitempty"`
	Context     *string  `json:"context,omitempty"`
	Transport   *string  `json:"transport,omitempty"`
	Codecs      []string `json:"codecs,omitempty"`
	MaxContacts *int     `json:"max_contacts,omitempty"`
	CallerID    *string  `json:"callerid,omitempty"`

	// Grouped attribute objects.
	Core      *CoreSettings      `json:"core,omitempty"`
	Media     *MediaSettings     `json:"media,omitempty"`
	RTP       *RTPSettings       `json:"rtp,omitempty"`
	Recording *RecordingSettings `json:"recording,omitempty"`
	Presence  *PresenceSettings  `json:"presence,omitempty"`
	Auth      *AuthSettings      `json:"auth,omitempty"`
	AOR       *AORSettings       `json:"aor,omitempty"`
}

// Endpoint normalizes the request to an Endpoint carrying only the
// fields the caller actually set.
func (r *Request) Endpoint() *Endpoint {
	flat := &Endpoint{ID: r.ID}
	flat.Core.Context = cloneStr(r.Context)
	flat.Core.Transport = cloneStr(r.Transport)
	flat.Core.CallerID = cloneStr(r.CallerID)
	flat.Media.Codecs = append([]string(nil), r.Codecs...)
	if r.Username != nil {
		flat.ensureAuth().Username = cloneStr(r.Username)
	}
	if r.Password != nil {
		flat.ensureAuth().Password = cloneStr(r.Password)
	}
	if r.MaxContacts != nil {
		flat.ensureAOR().MaxContacts = cloneInt(r.MaxContacts)
	}

	grouped := &Endpoint{ID: r.ID}
	if r.Core != nil {
		grouped.Core = *r.Core
	}
	if r.Media != nil {
		grouped.Media = *r.Media
	}
	if r.RTP != nil {
		grouped.RTP = *r.RTP
	}
	if r.Recording != nil {
		grouped.Recording = *r.Recording
	}
	if r.Presence != nil {
		grouped.Presence = *r.Presence
	}
	if r.Auth != nil {
		auth := *r.Auth
		grouped.Auth = &auth
	}
	if r.AOR != nil {
		aor := *r.AOR
		grouped.AOR = &aor
	}

	return Merge(flat, grouped)
}
