package page

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// Form encodings understood by the engines.
const (
	EnctypeURLEncoded = "application/x-www-form-urlencoded"
	EnctypeMultipart  = "multipart/form-data"
	EnctypePlain      = "text/plain"
)

var (
	// ErrNoDocument is returned when Parse is given nothing to parse.
	ErrNoDocument = errors.New("no document")
	// ErrUnknownField is returned when an identity does not resolve to a control.
	ErrUnknownField = errors.New("unknown field")
)

// Page is the host page: its document and the forms found in it.
type Page struct {
	URL   *url.URL
	Doc   *Document
	Forms []*Form
}

// Parse discovers every form of doc and its controls, numbering forms in
// document order.
func Parse(doc *Document) (*Page, error) {
	if doc == nil || doc.Document == nil {
		return nil, ErrNoDocument
	}
	base, err := url.Parse(doc.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", doc.URL, err)
	}
	// <base href> changes how relative actions resolve.
	if href, ok := doc.Find("head base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(href); err == nil {
			base = b
		}
	}

	p := &Page{URL: base, Doc: doc}
	doc.Find("form").Each(func(i int, s *goquery.Selection) {
		p.Forms = append(p.Forms, parseForm(i, s, base))
	})
	return p, nil
}

// Field resolves an identity to the control it names.
func (p *Page) Field(id FieldID) (Field, error) {
	if id.Form < 0 || id.Form >= len(p.Forms) {
		return Field{}, fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	f, ok := p.Forms[id.Form].Field(id.Element)
	if !ok {
		return Field{}, fmt.Errorf("%w: %s", ErrUnknownField, id)
	}
	return f, nil
}

// FieldsByName returns every control named name, in document order.
func (p *Page) FieldsByName(name string) []Field {
	var out []Field
	for _, form := range p.Forms {
		for _, f := range form.Elements {
			if f.Name == name {
				out = append(out, f)
			}
		}
	}
	return out
}

// Targets returns every control of every form that can carry a payload.
// Hidden inputs are included.
func (p *Page) Targets() []Field {
	var out []Field
	for _, form := range p.Forms {
		for _, f := range form.Elements {
			if f.IsValidTarget() {
				out = append(out, f)
			}
		}
	}
	return out
}

// Pair is one name/value entry of a form data set.
type Pair struct {
	Name  string
	Value string
}

// Values builds the form data set the browser would submit: named, enabled
// controls, checked checkboxes and radios only, no buttons. Order follows
// the document.
func (f *Form) Values() []Pair {
	var out []Pair
	for _, el := range f.Elements {
		if el.Name == "" || el.Disabled {
			continue
		}
		switch el.Type {
		case "submit", "reset", "button", "image", "file":
			continue
		case "checkbox", "radio":
			if !el.Checked {
				continue
			}
		case "select-multiple":
			for _, opt := range el.Options {
				if opt.Selected {
					out = append(out, Pair{Name: el.Name, Value: opt.Value})
				}
			}
			continue
		}
		switch el.Tag {
		case "fieldset", "object", "output":
			continue
		}
		out = append(out, Pair{Name: el.Name, Value: el.Value})
	}
	return out
}

// SetValue assigns v to the element at index i, as a script would through
// element.value. Checkable controls become checked. Disabled controls are
// enabled so the value is submitted.
func (f *Form) SetValue(i int, v string) error {
	if i < 0 || i >= len(f.Elements) {
		return fmt.Errorf("%w: %d;%d", ErrUnknownField, f.Index, i)
	}
	el := &f.Elements[i]
	el.Disabled = false
	el.Value = v
	switch el.Type {
	case "radio":
		for j := range f.Elements {
			if f.Elements[j].Type == "radio" && f.Elements[j].Name == el.Name {
				f.Elements[j].Checked = false
			}
		}
		el.Checked = true
	case "checkbox":
		el.Checked = true
	case "select-one", "select-multiple":
		// Synthetic option carrying the payload becomes the selection.
		for j := range el.Options {
			el.Options[j].Selected = false
		}
		el.Options = append(el.Options, Option{Value: v, Selected: true})
	}
	return nil
}
