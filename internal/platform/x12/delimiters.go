package x12

import (
	"bytes"
	"fmt"
)

const (
	// DefaultElementSeparator separates elements within a segment.
	DefaultElementSeparator = '*'

	// DefaultComponentSeparator separates sub-elements of a composite (ISA-16).
	DefaultComponentSeparator = ':'

	// DefaultRepetitionSeparator separates repeated elements (ISA-11, 005010).
	DefaultRepetitionSeparator = '^'

	// DefaultSegmentTerminator ends every segment.
	DefaultSegmentTerminator = '~'

	// isaLength is the fixed length of an ISA segment including its terminator.
	isaLength = 106

	// isaElementCount is the number of elements in an ISA segment.
	isaElementCount = 16
)

// Delimiters is the separator set declared once in the ISA header and fixed
// for the lifetime of an interchange.
type Delimiters struct {
	Element    byte `json:"element"`
	Component  byte `json:"component"`
	Repetition byte `json:"repetition"`
	Segment    byte `json:"segment"`
}

// DefaultDelimiters returns the separators this system emits: * : ^ ~
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Element:    DefaultElementSeparator,
		Component:  DefaultComponentSeparator,
		Repetition: DefaultRepetitionSeparator,
		Segment:    DefaultSegmentTerminator,
	}
}

// Reserved reports whether c is one of the delimiter characters.
func (d Delimiters) Reserved(c byte) bool {
	return c == d.Element || c == d.Component || c == d.Repetition || c == d.Segment
}

// Validate checks that the four separators are distinct and are not
// characters that can appear in ordinary data.
func (d Delimiters) Validate() error {
	set := []byte{d.Element, d.Component, d.Repetition, d.Segment}
	for i, c := range set {
		if isAlphaNumeric(c) || c == ' ' {
			return fmt.Errorf("x12: delimiter %q must not be alphanumeric or space", c)
		}
		if !isPrintable(c) && !(c == d.Segment && (c == '\n' || c == '\r')) {
			return fmt.Errorf("x12: delimiter 0x%02x is not printable", c)
		}
		for _, other := range set[i+1:] {
			if c == other {
				return fmt.Errorf("x12: delimiter %q is used more than once", c)
			}
		}
	}
	return nil
}

// DetectDelimiters reads the separators declared by the ISA header of a raw
// interchange. The element separator is the byte after "ISA", the component
// separator is ISA-16 and the segment terminator is the byte that follows it.
// The second return value is false when no usable ISA header was found, in
// which case DefaultDelimiters is returned.
func DetectDelimiters(raw []byte) (Delimiters, bool) {
	text := bytes.TrimLeft(raw, " \t\r\n")
	if len(text) < 4 || !bytes.HasPrefix(text, []byte("ISA")) {
		return DefaultDelimiters(), false
	}

	d := Delimiters{Element: text[3]}

	// Walk the element separators rather than trusting fixed offsets, so a
	// header that is not padded to width still yields its delimiters.
	seen := 0
	elementStart := 4
	for i := 3; i < len(text); i++ {
		if text[i] != d.Element {
			continue
		}
		seen++
		if seen == 11 {
			elementStart = i + 1
		}
		if seen == 12 && i-elementStart == 1 {
			d.Repetition = text[elementStart]
		}
		if seen == isaElementCount {
			if i+2 >= len(text) {
				return DefaultDelimiters(), false
			}
			d.Component = text[i+1]
			d.Segment = text[i+2]
			break
		}
	}
	if seen < isaElementCount {
		return DefaultDelimiters(), false
	}

	// 004010 interchanges carry "U" in ISA-11 instead of a separator.
	if d.Repetition == 0 || isAlphaNumeric(d.Repetition) {
		d.Repetition = DefaultRepetitionSeparator
		if d.Repetition == d.Element || d.Repetition == d.Component || d.Repetition == d.Segment {
			d.Repetition = 0
		}
	}

	return d, true
}

func isAlphaNumeric(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isPrintable(c byte) bool {
	return c >= 0x20 && c <= 0x7e
}
