package x12

import (
	"fmt"
	"strconv"
)

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Status is the terminal state of a parse.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
)

// Finding is one validation error or warning. Position is the 1-based index
// of the offending segment in the document, or 0 when the finding concerns
// the transaction as a whole. Err carries the typed cause, when there is one.
type Finding struct {
	Severity  Severity `json:"severity"`
	Position  int      `json:"position"`
	SegmentID string   `json:"segmentId,omitempty"`
	Message   string   `json:"message"`
	Err       error    `json:"-"`
}

func (f Finding) String() string {
	if f.Position == 0 {
		return f.Message
	}
	return fmt.Sprintf("segment %d (%s): %s", f.Position, f.SegmentID, f.Message)
}

func errorFinding(pos int, id string, err error) Finding {
	return Finding{Severity: SeverityError, Position: pos, SegmentID: id, Message: err.Error(), Err: err}
}

func warningFinding(pos int, id, message string, err error) Finding {
	return Finding{Severity: SeverityWarning, Position: pos, SegmentID: id, Message: message, Err: err}
}

// Result is the outcome of parsing one interchange: the segments, the HL
// tree, the fields that could be extracted and every finding. It is returned
// whole even when the transaction is invalid.
type Result struct {
	Type       TransactionType `json:"type"`
	Status     Status          `json:"status"`
	Control    ControlNumbers  `json:"control"`
	Delimiters Delimiters      `json:"delimiters"`
	Segments   []Segment       `json:"segments"`
	Hierarchy  []HLNode        `json:"hierarchy,omitempty"`
	Fields     Fields          `json:"fields"`
	Findings   []Finding       `json:"findings"`
}

// Valid reports whether no error findings were recorded.
func (r *Result) Valid() bool {
	return r.Status == StatusValid
}

// Errors returns the error findings.
func (r *Result) Errors() []Finding {
	return r.filter(SeverityError)
}

// Warnings returns the warning findings.
func (r *Result) Warnings() []Finding {
	return r.filter(SeverityWarning)
}

func (r *Result) filter(sev Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// Parse tokenizes and validates raw X12 text, inferring the transaction type
// from ST-01 (or GS-01 when ST is missing). Malformed input never produces an
// error: problems are recorded as findings and the result is marked
// invalid. The only error is *InputTooLargeError.
func Parse(raw []byte, limits Limits) (*Result, error) {
	return parse(raw, "", limits)
}

// ParseAs is Parse for a caller that expects a specific transaction type. An
// unsupported type is a caller error and is returned immediately as
// *UnsupportedTransactionTypeError.
func ParseAs(raw []byte, tt TransactionType, limits Limits) (*Result, error) {
	if _, err := SchemaFor(tt); err != nil {
		return nil, err
	}
	return parse(raw, tt, limits)
}

func parse(raw []byte, expected TransactionType, limits Limits) (*Result, error) {
	u, err := Unwrap(raw, limits)
	if err != nil {
		return nil, err
	}

	p := &parser{
		unwrapped: u,
		result: &Result{
			Control:    u.Control(),
			Delimiters: u.Delimiters,
			Segments:   u.Segments,
		},
	}
	p.resolveType(expected)
	p.checkDelimiters()
	p.checkRequired()
	p.checkSegments()
	p.checkEnvelope()
	p.checkHierarchy()
	p.extract()

	p.result.Status = StatusValid
	if len(p.result.Errors()) > 0 {
		p.result.Status = StatusInvalid
	}
	return p.result, nil
}

type parser struct {
	unwrapped *Unwrapped
	schema    *TransactionSchema
	result    *Result
}

func (p *parser) add(f Finding) {
	p.result.Findings = append(p.result.Findings, f)
}

// resolveType settles the transaction type and its schema. An unknown ST-01
// in received data is a finding, not an error.
func (p *parser) resolveType(expected TransactionType) {
	declared := ""
	if st, ok := p.unwrapped.Header("ST"); ok {
		declared = st.Segment.Get("TransactionSetID")
	}

	tt := TransactionType(declared)
	if declared == "" {
		if gs, ok := p.unwrapped.Header("GS"); ok {
			tt = functionalIDTypes[gs.Segment.Get("FunctionalID")]
		}
	}

	if expected != "" {
		if declared != "" && TransactionType(declared) != expected {
			st, _ := p.unwrapped.Header("ST")
			p.add(errorFinding(st.Position, "ST",
				fmt.Errorf("x12: transaction set %s does not match expected %s", declared, expected)))
		}
		tt = expected
	}

	p.result.Type = tt
	schema, err := SchemaFor(tt)
	if err != nil {
		if declared != "" {
			st, _ := p.unwrapped.Header("ST")
			p.add(errorFinding(st.Position, "ST", err))
		} else {
			p.add(errorFinding(0, "", fmt.Errorf("x12: transaction type could not be determined")))
		}
		return
	}
	p.schema = schema
}

func (p *parser) checkDelimiters() {
	u := p.unwrapped
	if !u.DelimitersDeclared {
		p.add(warningFinding(0, "ISA", "ISA header not found; default delimiters assumed", nil))
		return
	}
	if u.ISALength != isaLength {
		p.add(warningFinding(1, "ISA",
			fmt.Sprintf("ISA is %d characters; fixed-width headers are %d", u.ISALength, isaLength), nil))
	}
}

func (p *parser) checkRequired() {
	required := envelopeSegments
	if p.schema != nil {
		required = p.schema.Required
	}

	present := make(map[string]bool, len(p.unwrapped.Segments))
	for _, seg := range p.unwrapped.Segments {
		present[seg.ID] = true
	}
	for _, id := range required {
		if !present[id] {
			p.add(errorFinding(0, id, &MissingRequiredSegmentError{SegmentID: id}))
		}
	}
	if p.isAuthorizationResponse() && !present["HCR"] {
		p.add(errorFinding(0, "HCR", &MissingRequiredSegmentError{SegmentID: "HCR"}))
	}
}

// checkSegments warns about segments the transaction type does not know.
func (p *parser) checkSegments() {
	if p.schema == nil {
		return
	}
	for i, seg := range p.unwrapped.Payload {
		if p.schema.Segment(seg.ID) == nil {
			p.add(warningFinding(p.unwrapped.PayloadPosition(i), seg.ID,
				fmt.Sprintf("segment %q is not part of transaction %s and was ignored", seg.ID, p.schema.Type), nil))
		}
	}
	if p.unwrapped.TransactionSetCount > 1 {
		p.add(warningFinding(0, "ST",
			fmt.Sprintf("%d transaction sets found; only the first is interpreted", p.unwrapped.TransactionSetCount), nil))
	}
}

func (p *parser) checkEnvelope() {
	u := p.unwrapped
	pairs := []struct {
		header, trailer string
		hPos, tPos      int
	}{
		{"ISA", "IEA", 13, 2},
		{"GS", "GE", 6, 2},
		{"ST", "SE", 2, 2},
	}
	for _, pair := range pairs {
		h, hok := u.Header(pair.header)
		t, tok := u.Header(pair.trailer)
		if !hok || !tok {
			continue
		}
		want, got := h.Segment.Element(pair.hPos), t.Segment.Element(pair.tPos)
		if want != got {
			p.add(errorFinding(t.Position, pair.trailer, &ControlNumberMismatchError{
				Header: pair.header, Trailer: pair.trailer, Want: want, Got: got,
			}))
		}
	}

	if _, ok := u.Header("SE"); ok && u.ActualSegmentCount > 0 {
		p.checkCount("SE", u.DeclaredSegmentCount, u.ActualSegmentCount)
	}
	if _, ok := u.Header("GE"); ok {
		p.checkCount("GE", u.DeclaredSetCount, u.TransactionSetCount)
	}
	if _, ok := u.Header("IEA"); ok {
		p.checkCount("IEA", u.DeclaredGroupCount, u.FunctionalGroupCount)
	}

	if p.schema != nil {
		if gs, ok := u.Header("GS"); ok {
			if fid := gs.Segment.Get("FunctionalID"); fid != p.schema.FunctionalID {
				p.add(warningFinding(gs.Position, "GS",
					fmt.Sprintf("functional identifier %q does not match %q expected for %s", fid, p.schema.FunctionalID, p.schema.Type), nil))
			}
		}
	}
}

func (p *parser) checkCount(trailer, declared string, actual int) {
	t, _ := p.unwrapped.Header(trailer)
	n, err := strconv.Atoi(declared)
	if err != nil || n != actual {
		p.add(errorFinding(t.Position, trailer, &SegmentCountMismatchError{Trailer: trailer, Declared: declared, Actual: actual}))
	}
}

func (p *parser) checkHierarchy() {
	if p.schema == nil || p.schema.Hierarchy == nil {
		return
	}
	h := newHierarchy(p.schema)
	for i, seg := range p.unwrapped.Payload {
		if seg.ID != "HL" {
			continue
		}
		for _, f := range h.visit(seg, p.unwrapped.PayloadPosition(i)) {
			p.add(f)
		}
	}
	for _, f := range h.finish() {
		p.add(f)
	}
	p.result.Hierarchy = h.Nodes()
}

// isAuthorizationResponse reports a 278 whose BHT-02 marks it as a response.
func (p *parser) isAuthorizationResponse() bool {
	if p.result.Type != TypeAuthorization {
		return false
	}
	for _, seg := range p.unwrapped.Payload {
		if seg.ID == "BHT" {
			return seg.Get("Purpose") == "11"
		}
	}
	return false
}
