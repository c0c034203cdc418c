package page

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrInvalidFieldID indicates a field identity string is not "form;element".
var ErrInvalidFieldID = errors.New("invalid field identity")

// controlSelector lists the listed form-associated elements, in the order
// the browser exposes them through form.elements.
const controlSelector = "input, select, textarea, button, fieldset, object, output"

// FieldID identifies a control by its form index and its index inside that
// form's elements collection.
type FieldID struct {
	Form    int `json:"form"`
	Element int `json:"element"`
}

// String renders the identity as "form;element".
func (id FieldID) String() string {
	return strconv.Itoa(id.Form) + ";" + strconv.Itoa(id.Element)
}

// ParseFieldID parses the "form;element" notation.
func ParseFieldID(s string) (FieldID, error) {
	parts := strings.Split(strings.TrimSpace(s), ";")
	if len(parts) != 2 {
		return FieldID{}, fmt.Errorf("%w: %q", ErrInvalidFieldID, s)
	}
	form, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || form < 0 {
		return FieldID{}, fmt.Errorf("%w: %q", ErrInvalidFieldID, s)
	}
	element, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || element < 0 {
		return FieldID{}, fmt.Errorf("%w: %q", ErrInvalidFieldID, s)
	}
	return FieldID{Form: form, Element: element}, nil
}

// Option is one <option> of a select field.
type Option struct {
	Value    string
	Selected bool
}

// Field is a single form control.
type Field struct {
	ID       FieldID
	Tag      string // input, select, textarea, button, ...
	Type     string // lower-cased type; "select-one"/"select-multiple" for selects
	Name     string
	Value    string
	Checked  bool
	Disabled bool
	Options  []Option

	form *Form
}

// Form returns the form owning the field.
func (f Field) Form() *Form {
	return f.form
}

// IsSelect reports whether the field is a selection list.
func (f Field) IsSelect() bool {
	return strings.HasPrefix(f.Type, "select")
}

// IsValidTarget reports whether the field can carry a payload. Buttons and
// submit/reset controls cannot.
func (f Field) IsValidTarget() bool {
	switch f.Type {
	case "submit", "reset", "button":
		return false
	}
	switch f.Tag {
	case "fieldset", "object", "output":
		return false
	}
	return true
}

// DisplayName is used in log lines; unnamed controls fall back to their identity.
func (f Field) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return "#" + f.ID.String()
}

// Form is a parsed <form> element.
type Form struct {
	Index   int
	Name    string
	HTMLID  string
	Action  *url.URL
	Method  string // GET or POST
	Enctype string
	Target  string

	Elements []Field
}

// Field returns the control at element index i.
func (f *Form) Field(i int) (Field, bool) {
	if i < 0 || i >= len(f.Elements) {
		return Field{}, false
	}
	return f.Elements[i], true
}

// Clone returns a deep copy whose fields point at the copy.
func (f *Form) Clone() *Form {
	c := *f
	if f.Action != nil {
		u := *f.Action
		c.Action = &u
	}
	c.Elements = make([]Field, len(f.Elements))
	for i, el := range f.Elements {
		el.Options = append([]Option(nil), el.Options...)
		el.form = &c
		c.Elements[i] = el
	}
	return &c
}

// parseForm builds a Form from its selection. base resolves the action.
func parseForm(index int, s *goquery.Selection, base *url.URL) *Form {
	form := &Form{
		Index:   index,
		Name:    attr(s, "name"),
		HTMLID:  attr(s, "id"),
		Method:  strings.ToUpper(strings.TrimSpace(attr(s, "method"))),
		Enctype: strings.ToLower(strings.TrimSpace(attr(s, "enctype"))),
		Target:  attr(s, "target"),
	}
	if form.Method != "POST" {
		form.Method = "GET"
	}
	if form.Enctype != EnctypeMultipart && form.Enctype != EnctypePlain {
		form.Enctype = EnctypeURLEncoded
	}
	form.Action = resolveAction(base, attr(s, "action"))

	s.Find(controlSelector).Each(func(_ int, el *goquery.Selection) {
		// form.elements leaves out image buttons
		if goquery.NodeName(el) == "input" && strings.EqualFold(strings.TrimSpace(attr(el, "type")), "image") {
			return
		}
		id := FieldID{Form: index, Element: len(form.Elements)}
		form.Elements = append(form.Elements, parseField(form, id, el))
	})
	return form
}

func parseField(form *Form, id FieldID, el *goquery.Selection) Field {
	tag := goquery.NodeName(el)
	_, disabled := el.Attr("disabled")
	field := Field{
		ID:       id,
		Tag:      tag,
		Name:     attr(el, "name"),
		Disabled: disabled,
		form:     form,
	}

	switch tag {
	case "input":
		field.Type = strings.ToLower(strings.TrimSpace(attr(el, "type")))
		if field.Type == "" {
			field.Type = "text"
		}
		field.Value = attr(el, "value")
		if field.Type == "checkbox" || field.Type == "radio" {
			if _, ok := el.Attr("value"); !ok {
				field.Value = "on"
			}
			_, field.Checked = el.Attr("checked")
		}
	case "select":
		field.Type = "select-one"
		if _, multiple := el.Attr("multiple"); multiple {
			field.Type = "select-multiple"
		}
		el.Find("option").Each(func(_ int, opt *goquery.Selection) {
			value, ok := opt.Attr("value")
			if !ok {
				value = strings.TrimSpace(opt.Text())
			}
			_, selected := opt.Attr("selected")
			field.Options = append(field.Options, Option{Value: value, Selected: selected})
		})
		field.Value = selectedValue(field)
	case "textarea":
		field.Type = "textarea"
		field.Value = el.Text()
	case "button":
		field.Type = strings.ToLower(strings.TrimSpace(attr(el, "type")))
		if field.Type == "" {
			field.Type = "submit"
		}
		field.Value = attr(el, "value")
	default:
		field.Type = tag
	}
	return field
}

func selectedValue(f Field) string {
	for _, opt := range f.Options {
		if opt.Selected {
			return opt.Value
		}
	}
	if f.Type == "select-one" && len(f.Options) > 0 {
		return f.Options[0].Value
	}
	return ""
}

func resolveAction(base *url.URL, action string) *url.URL {
	action = strings.TrimSpace(action)
	if base == nil {
		u, err := url.Parse(action)
		if err != nil {
			return &url.URL{}
		}
		return u
	}
	if action == "" {
		u := *base
		u.Fragment = ""
		return &u
	}
	u, err := base.Parse(action)
	if err != nil {
		u := *base
		return &u
	}
	return u
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}
