package x12

import (
	"strings"

	"github.com/ehr/edi/internal/platform/hipaa"
)

// Summary is a flat, printable view of a parsed transaction for operators
// and audit logs.
type Summary struct {
	Type          TransactionType `json:"type" yaml:"type"`
	Status        Status          `json:"status" yaml:"status"`
	Control       ControlNumbers  `json:"control" yaml:"control"`
	SegmentIDs    []string        `json:"segmentIds" yaml:"segmentIds"`
	SegmentCounts map[string]int  `json:"segmentCounts" yaml:"segmentCounts"`

	SenderID    string `json:"senderId,omitempty" yaml:"senderId,omitempty"`
	ReceiverID  string `json:"receiverId,omitempty" yaml:"receiverId,omitempty"`
	PayerName   string `json:"payerName,omitempty" yaml:"payerName,omitempty"`
	PayerID     string `json:"payerId,omitempty" yaml:"payerId,omitempty"`
	Provider    string `json:"provider,omitempty" yaml:"provider,omitempty"`
	ProviderNPI string `json:"providerNpi,omitempty" yaml:"providerNpi,omitempty"`
	MemberID    string `json:"memberId,omitempty" yaml:"memberId,omitempty"`
	MemberName  string `json:"memberName,omitempty" yaml:"memberName,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty" yaml:"dateOfBirth,omitempty"`
	Dependent   string `json:"dependent,omitempty" yaml:"dependent,omitempty"`

	ServiceTypes []string `json:"serviceTypes,omitempty" yaml:"serviceTypes,omitempty"`
	TraceNumbers []string `json:"traceNumbers,omitempty" yaml:"traceNumbers,omitempty"`
	Eligible     *bool    `json:"eligible,omitempty" yaml:"eligible,omitempty"`
	Decision     string   `json:"decision,omitempty" yaml:"decision,omitempty"`

	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Analyze summarizes a parse result. It does not modify the result.
func Analyze(r *Result) Summary {
	f := r.Fields
	s := Summary{
		Type:          r.Type,
		Status:        r.Status,
		Control:       r.Control,
		SegmentIDs:    make([]string, 0, len(r.Segments)),
		SegmentCounts: make(map[string]int),
		SenderID:      f.SenderID,
		ReceiverID:    f.ReceiverID,
		PayerName:     f.Payer.Name,
		PayerID:       f.Payer.ID,
		Provider:      f.Provider.Name(),
		ProviderNPI:   f.Provider.NPI,
		MemberID:      f.Subscriber.MemberID,
		MemberName:    personName(f.Subscriber.LastName, f.Subscriber.FirstName),
		ServiceTypes:  append([]string(nil), f.ServiceTypes...),
		TraceNumbers:  append([]string(nil), f.TraceNumbers...),
		Eligible:      f.Eligible,
	}
	for _, seg := range r.Segments {
		s.SegmentIDs = append(s.SegmentIDs, seg.ID)
		s.SegmentCounts[seg.ID]++
	}
	if d := f.Subscriber.Demographics; d != nil {
		s.DateOfBirth = d.DateOfBirth.Format(dateFormatISO)
	}
	if f.Dependent != nil {
		s.Dependent = personName(f.Dependent.LastName, f.Dependent.FirstName)
	}
	if d := f.Decision; d != nil {
		s.Decision = d.Action
		if desc := d.Description(); desc != "" {
			s.Decision += " (" + desc + ")"
		}
	}
	for _, e := range r.Errors() {
		s.Errors = append(s.Errors, e.String())
	}
	for _, w := range r.Warnings() {
		s.Warnings = append(s.Warnings, w.String())
	}
	return s
}

// Redacted returns a copy of the summary with member identifiers, names and
// birth dates masked for audit logging.
func (s Summary) Redacted() Summary {
	out := s
	out.MemberID = hipaa.MaskIdentifier(s.MemberID)
	out.MemberName = hipaa.MaskIdentifier(s.MemberName)
	out.Dependent = hipaa.MaskIdentifier(s.Dependent)
	out.DateOfBirth = hipaa.MaskDate(s.DateOfBirth)
	return out
}

// RedactSegments returns a copy of segments with every PHI element masked.
// Organization names and identifiers in NM1 are left readable.
func RedactSegments(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		out[i] = Segment{ID: seg.ID, Elements: append([]Element(nil), seg.Elements...)}
		cfg, ok := hipaa.PHIElementsFor(seg.ID)
		if !ok || (cfg.PersonOnly && seg.Element(2) != "1") {
			continue
		}
		mask := hipaa.MaskIdentifier
		if cfg.Date {
			mask = hipaa.MaskDate
		}
		for _, pos := range cfg.Elements {
			if pos > len(out[i].Elements) {
				continue
			}
			out[i].Elements[pos-1] = maskElement(out[i].Elements[pos-1], mask)
		}
	}
	return out
}

// Redacted returns a copy of the result whose segments and extracted person
// fields are masked.
func (r *Result) Redacted() *Result {
	out := *r
	out.Segments = RedactSegments(r.Segments)
	out.Fields.Subscriber = redactMember(r.Fields.Subscriber)
	if d := r.Fields.Dependent; d != nil {
		dep := Dependent{LastName: hipaa.MaskIdentifier(d.LastName), FirstName: hipaa.MaskIdentifier(d.FirstName)}
		out.Fields.Dependent = &dep
	}
	return &out
}

func redactMember(m Member) Member {
	return Member{
		MemberID:    hipaa.MaskIdentifier(m.MemberID),
		LastName:    hipaa.MaskIdentifier(m.LastName),
		FirstName:   hipaa.MaskIdentifier(m.FirstName),
		MiddleName:  hipaa.MaskIdentifier(m.MiddleName),
		GroupNumber: hipaa.MaskIdentifier(m.GroupNumber),
	}
}

func maskElement(e Element, mask func(string) string) Element {
	masked := Element{Value: mask(e.Value)}
	for _, c := range e.Components {
		masked.Components = append(masked.Components, mask(c))
	}
	return masked
}

func personName(last, first string) string {
	return strings.TrimSpace(strings.TrimSuffix(last+", "+first, ", "))
}
