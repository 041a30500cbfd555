package x12

import (
	"strings"
)

// Limits bounds the work the tokenizer will do on untrusted input.
type Limits struct {
	MaxInputBytes int `json:"maxInputBytes"`
	MaxSegments   int `json:"maxSegments"`
	MaxElements   int `json:"maxElements"`
}

// DefaultLimits returns bounds generous enough for any single eligibility,
// patient information or authorization interchange.
func DefaultLimits() Limits {
	return Limits{
		MaxInputBytes: 4 << 20,
		MaxSegments:   100_000,
		MaxElements:   512,
	}
}

// BuildSegment renders a segment in its delimited wire form, terminator
// included. Elements the schema marks fixed width are padded or truncated,
// trailing empty elements are dropped (except in ISA), and any literal value
// containing a delimiter or a non-printable character is rejected.
func BuildSegment(seg Segment, d Delimiters) (string, error) {
	schema := segmentSchemas[seg.ID]

	elements := seg.Elements
	if seg.ID != "ISA" {
		end := len(elements)
		for end > 0 && elements[end-1].Text() == "" {
			end--
		}
		elements = elements[:end]
	}

	if err := checkRequired(seg.ID, schema, elements); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(seg.ID)
	for i, el := range elements {
		pos := i + 1
		spec, known := schema.Spec(pos)
		b.WriteByte(d.Element)

		if known && spec.Delimiter {
			b.WriteString(el.Value)
			continue
		}

		if !el.IsComposite() {
			value := el.Value
			if known && spec.Width > 0 {
				value = fixedWidth(value, spec.Width)
			}
			if err := checkLiteral(seg.ID, pos, value, d); err != nil {
				return "", err
			}
			b.WriteString(value)
			continue
		}

		parts := trimTrailingEmpty(el.Components)
		for j, part := range parts {
			if err := checkLiteral(seg.ID, pos, part, d); err != nil {
				return "", err
			}
			if j > 0 {
				b.WriteByte(d.Component)
			}
			b.WriteString(part)
		}
	}
	b.WriteByte(d.Segment)

	return b.String(), nil
}

func checkRequired(id string, schema *SegmentSchema, elements []Element) error {
	if schema == nil {
		return nil
	}
	for i, spec := range schema.Elements {
		if !spec.Required {
			continue
		}
		if i >= len(elements) || elements[i].Text() == "" {
			return &IncompleteSegmentError{SegmentID: id, Position: i + 1, Name: spec.Name}
		}
	}
	return nil
}

func checkLiteral(id string, pos int, value string, d Delimiters) error {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if d.Reserved(c) {
			return &DelimiterCollisionError{SegmentID: id, Position: pos, Value: value, Char: c}
		}
		if !isPrintable(c) {
			return &InvalidCharacterError{SegmentID: id, Position: pos, Value: value, Char: c}
		}
	}
	return nil
}

// fixedWidth pads value with trailing spaces, or truncates it, to width.
func fixedWidth(value string, width int) string {
	if len(value) >= width {
		return value[:width]
	}
	return value + strings.Repeat(" ", width-len(value))
}

// Tokenize splits raw X12 text into segments in document order. It splits on
// the segment terminator, then on the element separator, then splits the
// elements the schema declares composite on the component separator. Line
// breaks and blanks around segments are ignored, as is a trailing terminator.
// Tokenize does not interpret segments; it only enforces limits.
func Tokenize(raw []byte, d Delimiters, limits Limits) ([]Segment, error) {
	if limits.MaxInputBytes > 0 && len(raw) > limits.MaxInputBytes {
		return nil, &InputTooLargeError{Limit: "input bytes", Max: limits.MaxInputBytes, Actual: len(raw)}
	}

	text := string(raw)
	var segments []Segment
	for len(text) > 0 {
		var chunk string
		if idx := strings.IndexByte(text, d.Segment); idx >= 0 {
			chunk, text = text[:idx], text[idx+1:]
		} else {
			chunk, text = text, ""
		}

		chunk = strings.Trim(chunk, " \t\r\n")
		if chunk == "" {
			continue
		}

		if limits.MaxSegments > 0 && len(segments) >= limits.MaxSegments {
			return nil, &InputTooLargeError{Limit: "segment count", Max: limits.MaxSegments, Actual: len(segments) + 1}
		}

		seg, err := tokenizeSegment(chunk, d, limits)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}

	return segments, nil
}

func tokenizeSegment(chunk string, d Delimiters, limits Limits) (Segment, error) {
	count := strings.Count(chunk, string(d.Element))
	if limits.MaxElements > 0 && count > limits.MaxElements {
		return Segment{}, &InputTooLargeError{Limit: "elements per segment", Max: limits.MaxElements, Actual: count}
	}

	parts := strings.Split(chunk, string(d.Element))
	seg := Segment{ID: parts[0]}
	if len(parts) == 1 {
		return seg, nil
	}

	schema := segmentSchemas[seg.ID]
	seg.Elements = make([]Element, len(parts)-1)
	for i, p := range parts[1:] {
		el := Element{Value: p}
		if spec, ok := schema.Spec(i + 1); ok && spec.Composite {
			el.Components = strings.Split(p, string(d.Component))
		}
		seg.Elements[i] = el
	}
	return seg, nil
}

// Render joins built segments into wire text.
func Render(segments []Segment, d Delimiters) (string, error) {
	var b strings.Builder
	for _, seg := range segments {
		s, err := BuildSegment(seg, d)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
