package x12

import "strings"

// Segment is one delimited X12 record: an identifier followed by ordered
// elements. Elements the schema does not describe are kept verbatim.
type Segment struct {
	ID       string    `json:"id"`
	Elements []Element `json:"elements"`
}

// Element is a single data element. Simple elements carry Value only.
// Composite elements carry their sub-elements in Components; when produced
// by Tokenize, Value also holds the raw composite text.
type Element struct {
	Value      string   `json:"value"`
	Components []string `json:"components,omitempty"`
}

// NewSegment builds a segment whose elements are all simple.
func NewSegment(id string, values ...string) Segment {
	seg := Segment{ID: id, Elements: make([]Element, len(values))}
	for i, v := range values {
		seg.Elements[i] = Element{Value: v}
	}
	return seg
}

// Simple returns a simple element.
func Simple(value string) Element {
	return Element{Value: value}
}

// Composite returns a composite element made of the given sub-elements.
func Composite(parts ...string) Element {
	return Element{Components: parts}
}

// IsComposite reports whether the element has sub-elements.
func (e Element) IsComposite() bool {
	return len(e.Components) > 0
}

// Text returns the element as it reads on the wire, joining composite parts
// with the default component separator when no raw value was recorded.
func (e Element) Text() string {
	if e.Value != "" || len(e.Components) == 0 {
		return e.Value
	}
	return strings.Join(trimTrailingEmpty(e.Components), string(rune(DefaultComponentSeparator)))
}

// Element returns the value of an element by its 1-based X12 position, so
// NM1-09 is Element(9). Missing positions return "".
func (s Segment) Element(index int) string {
	idx := index - 1
	if idx < 0 || idx >= len(s.Elements) {
		return ""
	}
	return s.Elements[idx].Text()
}

// Component returns a sub-element by 1-based element and component indices.
// For a simple element, component 1 is the element value.
func (s Segment) Component(elementIdx, compIdx int) string {
	idx := elementIdx - 1
	if idx < 0 || idx >= len(s.Elements) {
		return ""
	}
	el := s.Elements[idx]
	if !el.IsComposite() {
		if compIdx == 1 {
			return el.Value
		}
		return ""
	}
	ci := compIdx - 1
	if ci < 0 || ci >= len(el.Components) {
		return ""
	}
	return el.Components[ci]
}

// Has reports whether the element at the 1-based position exists and is
// not empty.
func (s Segment) Has(index int) bool {
	return s.Element(index) != ""
}

// Get returns the element the schema names for this segment, or "" when the
// segment or name is not described.
func (s Segment) Get(name string) string {
	schema, ok := segmentSchemas[s.ID]
	if !ok {
		return ""
	}
	return s.Element(schema.Index(name))
}

// Qualifier returns element 1, which most segments use as their qualifier.
func (s Segment) Qualifier() string {
	return s.Element(1)
}

func trimTrailingEmpty(values []string) []string {
	end := len(values)
	for end > 0 && values[end-1] == "" {
		end--
	}
	return values[:end]
}
