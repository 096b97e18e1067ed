// fastview implements a builder pattern for simple server-side views:
// given an input data format, apply a transformation to a view-model,
// and then multiplex that data to one or more views whose element updates
// are pushed to the page over a websocket.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attrib keys or one of the reserved keys below, values are the strings to which
	// these are set. Example: ('src','/a.png') means 'set attribute src to /a.png'.
	Ops []Op
}

// Op is a key and value. For example an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// Reserved op keys, interpreted by the page's bootstrap script.
const (
	// TextContent sets ele.textContent.
	TextContent = "textContent"
	// Hidden toggles the boolean hidden attribute; its value is "true" or "false".
	Hidden = "hidden"
)

// HiddenOp returns the op that shows or hides an element.
func HiddenOp(hidden bool) Op {
	if hidden {
		return Op{Key: Hidden, Value: "true"}
	}
	return Op{Key: Hidden, Value: "false"}
}

// ViewComponent implements server side views: Parse to add their initial form to the page
// template and Updates to obtain the chan by which ele-updates are notified.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse parses the view-component and adds it to the passed parent template, thus inheriting
	// or possibly extending its definition (func-map, etc). This allows recursive definition of
	// view-components. It returns the name of the defined template.
	Parse(*template.Template) (string, error)
}
