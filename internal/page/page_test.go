package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<html><head><title>t</title></head><body>
<form id="search" action="/search">
  <input name="q" value="default">
  <input type="submit" value="Go">
</form>
<form name="comment" method="post" action="https://other.example/post" enctype="multipart/form-data">
  <input type="hidden" name="token" value="abc">
  <textarea name="body">hello</textarea>
  <select name="topic"><option>news</option><option value="misc" selected>Misc</option></select>
  <input type="checkbox" name="notify">
  <input type="text" name="nick" disabled value="anon">
  <button>Send</button>
  <input type="reset">
</form>
</body></html>`

func parseFixture(t *testing.T) *Page {
	t.Helper()
	doc, err := ParseHTML(fixture, "http://host.example/app/index.html#top", 200)
	require.NoError(t, err)
	p, err := Parse(doc)
	require.NoError(t, err)
	return p
}

func TestParseFieldID(t *testing.T) {
	tests := []struct {
		in      string
		want    FieldID
		wantErr bool
	}{
		{"0;1", FieldID{0, 1}, false},
		{" 2 ; 5 ", FieldID{2, 5}, false},
		{"1", FieldID{}, true},
		{"a;b", FieldID{}, true},
		{"-1;0", FieldID{}, true},
		{"1;2;3", FieldID{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFieldID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFieldID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) FieldID {
	t.Helper()
	id, err := ParseFieldID(s)
	require.NoError(t, err)
	return id
}

func TestParse_Forms(t *testing.T) {
	p := parseFixture(t)
	require.Len(t, p.Forms, 2)

	search := p.Forms[0]
	assert.Equal(t, "GET", search.Method)
	assert.Equal(t, EnctypeURLEncoded, search.Enctype)
	assert.Equal(t, "http://host.example/search", search.Action.String())
	require.Len(t, search.Elements, 2)
	assert.Equal(t, "text", search.Elements[0].Type)
	assert.Equal(t, "default", search.Elements[0].Value)

	comment := p.Forms[1]
	assert.Equal(t, "POST", comment.Method)
	assert.Equal(t, EnctypeMultipart, comment.Enctype)
	assert.Equal(t, "https://other.example/post", comment.Action.String())

	topic, err := p.Field(FieldID{Form: 1, Element: 2})
	require.NoError(t, err)
	assert.True(t, topic.IsSelect())
	assert.Equal(t, "misc", topic.Value)
	assert.Equal(t, "hello", p.Forms[1].Elements[1].Value)
	assert.Same(t, comment, topic.Form())
}

func TestParse_EmptyActionIsPageURL(t *testing.T) {
	doc, err := ParseHTML(`<form><input name="a"></form>`, "http://h.example/p?x=1#frag", 200)
	require.NoError(t, err)
	p, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "http://h.example/p?x=1", p.Forms[0].Action.String())
}

func TestTargets_SkipsButtons(t *testing.T) {
	p := parseFixture(t)
	var names []string
	for _, f := range p.Targets() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"q", "token", "body", "topic", "notify", "nick"}, names)
}

func TestField_Unknown(t *testing.T) {
	p := parseFixture(t)
	_, err := p.Field(FieldID{Form: 9, Element: 0})
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = p.Field(FieldID{Form: 0, Element: 9})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestValues_SuccessfulControls(t *testing.T) {
	p := parseFixture(t)
	got := p.Forms[1].Values()
	assert.Equal(t, []Pair{
		{"token", "abc"},
		{"body", "hello"},
		{"topic", "misc"},
	}, got)
}

func TestSetValue_OnClone(t *testing.T) {
	p := parseFixture(t)
	orig := p.Forms[1]
	c := orig.Clone()

	require.NoError(t, c.SetValue(2, "<x>"))
	require.NoError(t, c.SetValue(3, "<y>"))
	require.NoError(t, c.SetValue(4, "<z>"))

	assert.Equal(t, []Pair{
		{"token", "abc"},
		{"body", "hello"},
		{"topic", "<x>"},
		{"notify", "<y>"},
		{"nick", "<z>"},
	}, c.Values())

	// the parsed form is untouched
	assert.Len(t, orig.Elements[2].Options, 2)
	assert.False(t, orig.Elements[3].Checked)
	assert.True(t, orig.Elements[4].Disabled)
	assert.Same(t, c, c.Elements[0].Form())
}

func TestBodyHasContent(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"empty", "", false},
		{"empty body", "<html><body></body></html>", false},
		{"text", "<html><body>ok</body></html>", true},
		{"element", "<p>x</p>", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseHTML(tt.html, "http://h.example/", 200)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.BodyHasContent())
		})
	}
}
