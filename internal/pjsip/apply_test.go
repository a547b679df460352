package pjsip

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferro.is/voxic/internal/confdoc"
)

const fixtureConf = `; global settings - operator maintained
[global]
type=global

[transport-udp]
type=transport
protocol=udp
`

func TestApplyCreate(t *testing.T) {
	doc := confdoc.Parse(fixtureConf)

	out, warnings, err := ApplyCreate(doc, fullEndpoint("100"))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	text := out.Render()
	assert.Contains(t, text, "[transport-udp]\ntype=transport\nprotocol=udp\n")
	assert.Contains(t, text, "[100]\n")
	assert.Contains(t, text, "[100-auth]\n")
	assert.Contains(t, text, "[100-aor]\n")
	// Creation appends, never rewrites the head of the file.
	assert.True(t, strings.HasPrefix(text, fixtureConf))
}

func TestApplyCreateDuplicate(t *testing.T) {
	doc := confdoc.Parse(fixtureConf)
	doc, _, err := ApplyCreate(doc, fullEndpoint("100"))
	require.NoError(t, err)

	_, _, err = ApplyCreate(doc, fullEndpoint("100"))
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestApplyCreateValidationRefused(t *testing.T) {
	doc := confdoc.Parse(fixtureConf)
	bad := fullEndpoint("nope!")
	bad.Auth.Password = str("short")

	_, _, err := ApplyCreate(doc, bad)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	// Both problems reported in one pass.
	fields := make(map[string]bool)
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	assert.True(t, fields["id"])
	assert.True(t, fields["auth.password"])
}

func TestApplyCreateUnknownCodecWarns(t *testing.T) {
	doc := confdoc.Parse(fixtureConf)
	e := fullEndpoint("100")
	e.Media.Codecs = []string{"ulaw", "futurecodec"}

	out, warnings, err := ApplyCreate(doc, e)
	require.NoError(t, err, "warnings must not block the write")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "futurecodec")
	assert.Contains(t, out.Render(), "allow=ulaw,futurecodec")
}

func TestApplyCreateRefusesInjectedSection(t *testing.T) {
	doc := confdoc.Parse(fixtureConf)
	e := fullEndpoint("100")
	e.Media.Codecs = []string{"ulaw", "g722\n[evil]\ntype=endpoint\ncontext=public"}

	_, _, err := ApplyCreate(doc, e)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, doc.FindEntitySections("evil"))
	assert.Equal(t, fixtureConf, doc.Render())
}

func TestApplyUpdateMergesOverExisting(t *testing.T) {
	doc := confdoc.Parse(fixtureConf)
	doc, _, err := ApplyCreate(doc, fullEndpoint("100"))
	require.NoError(t, err)
	before := doc.Render()

	patch := &Endpoint{Media: MediaSettings{Codecs: []string{"ulaw", "opus"}}}
	doc, merged, _, err := ApplyUpdate(doc, "100", patch)
	require.NoError(t, err)

	// Untouched fields survive the merge.
	assert.Equal(t, "internal", *merged.Core.Context)
	assert.Equal(t, "100", *merged.Auth.Username)

	after := doc.Render()
	assert.Contains(t, after, "allow=ulaw,opus")

	// Only the allow line differs.
	var changed []string
	b := strings.Split(before, "\n")
	a := strings.Split(after, "\n")
	require.Equal(t, len(b), len(a))
	for i := range a {
		if a[i] != b[i] {
			changed = append(changed, a[i])
		}
	}
	assert.Equal(t, []string{"allow=ulaw,opus"}, changed)
}

func TestApplyUpdatePreservesCustomKeys(t *testing.T) {
	doc := confdoc.Parse(fixtureConf)
	doc, _, err := ApplyCreate(doc, fullEndpoint("100"))
	require.NoError(t, err)

	// An operator hand-adds a key we do not model.
	text := strings.Replace(doc.Render(), "[100]\ntype=endpoint\n", "[100]\ntype=endpoint\nnamed_call_group=support\n", 1)
	doc = confdoc.Parse(text)

	patch := &Endpoint{Core: CoreSettings{Context: str("sales")}}
	doc, _, _, err = ApplyUpdate(doc, "100", patch)
	require.NoError(t, err)

	out := doc.Render()
	assert.Contains(t, out, "named_call_group=support")
	assert.Contains(t, out, "context=sales")
}

func TestApplyUpdateIdempotent(t *testing.T) {
	doc := confdoc.Parse(fixtureConf)
	doc, _, err := ApplyCreate(doc, fullEndpoint("100"))
	require.NoError(t, err)

	patch := &Endpoint{Core: CoreSettings{CallerID: str("Bob <100>")}}
	once, _, _, err := ApplyUpdate(doc, "100", patch)
	require.NoError(t, err)
	twice, _, _, err := ApplyUpdate(once, "100", patch)
	require.NoError(t, err)

	assert.Equal(t, once.Render(), twice.Render())
}

func TestApplyUpdateNotFound(t *testing.T) {
	doc := confdoc.Parse(fixtureConf)
	_, _, _, err := ApplyUpdate(doc, "999", &Endpoint{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestApplyDelete(t *testing.T) {
	doc := confdoc.Parse(fixtureConf)
	doc, _, err := ApplyCreate(doc, fullEndpoint("100"))
	require.NoError(t, err)
	doc, _, err = ApplyCreate(doc, fullEndpoint("200"))
	require.NoError(t, err)

	doc, err = ApplyDelete(doc, "100")
	require.NoError(t, err)

	assert.Empty(t, doc.FindEntitySections("100"))
	_, err = Get(doc, "100")
	assert.True(t, errors.Is(err, ErrNotFound))

	// Neighbors untouched.
	assert.NotEmpty(t, doc.FindEntitySections("200"))
	assert.Contains(t, doc.Render(), "[transport-udp]")

	_, err = ApplyDelete(doc, "100")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListSkipsNonEndpointSections(t *testing.T) {
	doc := confdoc.Parse(fixtureConf)
	doc, _, err := ApplyCreate(doc, fullEndpoint("100"))
	require.NoError(t, err)
	doc, _, err = ApplyCreate(doc, fullEndpoint("101"))
	require.NoError(t, err)

	list := List(doc)
	require.Len(t, list, 2)
	assert.Equal(t, "100", list[0].ID)
	assert.Equal(t, "101", list[1].ID)
}

func TestListSkipsTemplates(t *testing.T) {
	doc := confdoc.Parse("[basic](!)\ntype=endpoint\ncontext=internal\n")
	assert.Empty(t, List(doc))
}
