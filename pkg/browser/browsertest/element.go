package browsertest

import (
	"errors"
	"fmt"

	"github.com/logbook-automation/pkg/browser"
)

type Option struct {
	Value string
	Label string
}

// Element is a fake DOM node. Exported fields configure it before use; the
// accessors report what automation code did to it.
type Element struct {
	Hidden  bool
	Content string
	Attrs   map[string]string
	Options []Option

	// Reformat rewrites values on Fill, like a masked input would.
	Reformat func(string) string
	// IgnoreFiles drops files passed to SetFiles.
	IgnoreFiles bool
	FillErr     error
	ClickErr    error
	// OnClick runs after a successful click.
	OnClick func(p *Page) error
	// EvalFunc overrides the built-in script handling.
	EvalFunc func(fn string, arg interface{}) (string, error)

	page     *Page
	value    string
	checked  bool
	selected string
	files    []string
	clicks   int
	evals    []string
}

var _ browser.Element = (*Element)(nil)

func NewElement() *Element {
	return &Element{Attrs: map[string]string{}}
}

func Visible(text string) *Element {
	el := NewElement()
	el.Content = text
	return el
}

func Hidden() *Element {
	el := NewElement()
	el.Hidden = true
	return el
}

func Input(value string) *Element {
	el := NewElement()
	el.value = value
	return el
}

func Radio(value string) *Element {
	el := NewElement()
	el.Attrs["value"] = value
	el.Attrs["type"] = "radio"
	return el
}

func Select(options ...Option) *Element {
	el := NewElement()
	el.Options = options
	return el
}

func (e *Element) touch() {
	if e.page != nil {
		e.page.touch()
	}
}

func (e *Element) Visible() (bool, error) {
	e.touch()
	return !e.Hidden, nil
}

func (e *Element) Text() (string, error) {
	e.touch()
	return e.Content, nil
}

func (e *Element) Attribute(name string) (string, bool, error) {
	e.touch()
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *Element) Value() (string, error) {
	e.touch()
	return e.value, nil
}

func (e *Element) Fill(value string) error {
	e.touch()
	if e.FillErr != nil {
		return e.FillErr
	}
	if e.Reformat != nil {
		value = e.Reformat(value)
	}
	e.value = value
	return nil
}

func (e *Element) Click() error {
	e.touch()
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.clicks++
	if e.OnClick != nil {
		return e.OnClick(e.page)
	}
	return nil
}

func (e *Element) Check() error {
	e.touch()
	if e.ClickErr != nil {
		return e.ClickErr
	}
	e.checked = true
	return nil
}

func (e *Element) SelectByValue(value string) error {
	e.touch()
	for _, o := range e.Options {
		if o.Value == value {
			e.selected = o.Value
			e.value = o.Value
			return nil
		}
	}
	return fmt.Errorf("no option with value %q", value)
}

func (e *Element) SelectByLabel(label string) error {
	e.touch()
	for _, o := range e.Options {
		if o.Label == label {
			e.selected = o.Value
			e.value = o.Value
			return nil
		}
	}
	return fmt.Errorf("no option with label %q", label)
}

func (e *Element) SetFiles(paths []string) error {
	e.touch()
	if e.IgnoreFiles {
		return nil
	}
	e.files = append([]string(nil), paths...)
	return nil
}

func (e *Element) Eval(fn string, arg interface{}) (string, error) {
	e.touch()
	e.evals = append(e.evals, fn)
	if e.EvalFunc != nil {
		return e.EvalFunc(fn, arg)
	}

	switch fn {
	case browser.ScriptDispatchInputChange:
		return "ok", nil
	case browser.ScriptFileNames:
		return fileNamesJSON(e.files), nil
	case browser.ScriptDateWidgetUpdate:
		return "none", nil
	case browser.ScriptSelectComponent:
		value, _ := arg.(string)
		if err := e.SelectByValue(value); err != nil {
			return "missing", nil
		}
		return "dom", nil
	}
	return "", errors.New("browsertest: unsupported script")
}

func (e *Element) Checked() bool { return e.checked }
func (e *Element) Selected() string { return e.selected }
func (e *Element) Files() []string { return append([]string(nil), e.files...) }
func (e *Element) Clicks() int { return e.clicks }
func (e *Element) CurrentValue() string { return e.value }

// Evals lists the scripts run against the element, in order.
func (e *Element) Evals() []string { return append([]string(nil), e.evals...) }
