package x12

import (
	"fmt"
	"strings"
)

// Fields are the domain values read back out of a parsed transaction. Only
// the fields the transaction type carries are populated. Subscriber holds
// the patient of a 275.
type Fields struct {
	Purpose     string `json:"purpose,omitempty"`
	ReferenceID string `json:"referenceId,omitempty"`
	SenderID    string `json:"senderId,omitempty"`
	ReceiverID  string `json:"receiverId,omitempty"`

	Payer      Party      `json:"payer"`
	Provider   Provider   `json:"provider"`
	Subscriber Member     `json:"subscriber"`
	Dependent  *Dependent `json:"dependent,omitempty"`

	ServiceTypes []string `json:"serviceTypes,omitempty"`
	TraceNumbers []string `json:"traceNumbers,omitempty"`
	ServiceDate  *Date    `json:"serviceDate,omitempty"`

	Eligible   *bool       `json:"eligible,omitempty"`
	Benefits   []Benefit   `json:"benefits,omitempty"`
	Rejections []Rejection `json:"rejections,omitempty"`
	Messages   []string    `json:"messages,omitempty"`
	Diagnoses  []string    `json:"diagnoses,omitempty"`

	RequestCategory         string        `json:"requestCategory,omitempty"`
	CertificationType       string        `json:"certificationType,omitempty"`
	ServiceLines            []ServiceLine `json:"serviceLines,omitempty"`
	Decision                *Decision     `json:"decision,omitempty"`
	AdministrativeReference string        `json:"administrativeReference,omitempty"`

	Submitter   Party       `json:"submitter"`
	Receiver    Party       `json:"receiver"`
	Insurance   []Insurance `json:"insurance,omitempty"`
	Allergies   []string    `json:"allergies,omitempty"`
	Medications []string    `json:"medications,omitempty"`
}

// extractor reads fields in document order. NM1 sets the context that the
// DMG, N3, N4 and REF segments following it belong to.
type extractor struct {
	p        *parser
	fields   *Fields
	entity   string
	person   *Member
	insurer  *Insurance
	repeat   string
	warnings []Finding
}

func (p *parser) extract() {
	e := &extractor{p: p, fields: &p.result.Fields, repeat: string(p.unwrapped.Delimiters.Repetition)}

	if isa, ok := p.unwrapped.Header("ISA"); ok {
		e.fields.SenderID = strings.TrimSpace(isa.Segment.Get("SenderID"))
		e.fields.ReceiverID = strings.TrimSpace(isa.Segment.Get("ReceiverID"))
	}

	for i, seg := range p.unwrapped.Payload {
		if isEnvelopeSegment(seg.ID) {
			continue
		}
		e.segment(seg, p.unwrapped.PayloadPosition(i))
	}
	e.expect()

	for _, f := range e.warnings {
		p.add(f)
	}
}

func (e *extractor) warn(pos int, id, format string, args ...any) {
	e.warnings = append(e.warnings, warningFinding(pos, id, fmt.Sprintf(format, args...), nil))
}

func (e *extractor) segment(seg Segment, pos int) {
	f := e.fields
	switch seg.ID {
	case "BHT":
		f.Purpose = seg.Get("Purpose")
		f.ReferenceID = seg.Get("Reference")
	case "BGN":
		f.Purpose = seg.Get("Purpose")
		f.ReferenceID = seg.Get("Reference")
	case "NM1":
		e.name(seg, pos)
	case "REF":
		e.reference(seg)
	case "N3":
		if e.person != nil {
			e.address().Line1 = seg.Get("Address1")
			e.address().Line2 = seg.Get("Address2")
		}
	case "N4":
		if e.person != nil {
			a := e.address()
			a.City, a.State, a.PostalCode = seg.Get("City"), seg.Get("State"), seg.Get("PostalCode")
		}
	case "DMG":
		e.demographics(seg, pos)
	case "DTP":
		e.date(seg, pos)
	case "TRN":
		if n := seg.Get("TraceNumber"); n != "" {
			f.TraceNumbers = append(f.TraceNumbers, n)
		}
	case "EQ":
		for _, st := range e.split(seg.Get("ServiceType")) {
			f.ServiceTypes = appendUnique(f.ServiceTypes, st)
		}
	case "EB":
		e.benefit(seg, pos)
	case "AAA":
		f.Rejections = append(f.Rejections, Rejection{ReasonCode: seg.Get("RejectReason"), FollowUpCode: seg.Get("FollowUp")})
	case "MSG":
		e.message(seg.Get("Text"))
	case "HI":
		for i := range seg.Elements {
			if code := seg.Component(i+1, 2); code != "" {
				f.Diagnoses = append(f.Diagnoses, code)
			}
		}
	case "UM":
		f.RequestCategory = seg.Get("RequestCategory")
		f.CertificationType = seg.Get("CertificationType")
		if st := seg.Get("ServiceType"); st != "" {
			f.ServiceTypes = appendUnique(f.ServiceTypes, st)
		}
	case "HCR":
		d := e.decision()
		d.Action = seg.Get("Action")
		d.CertificationNumber = seg.Get("CertificationNumber")
		d.ReasonCode = seg.Get("Reason")
	case "SV1":
		f.ServiceLines = append(f.ServiceLines, e.serviceLine(seg, pos, false))
	case "SV2":
		f.ServiceLines = append(f.ServiceLines, e.serviceLine(seg, pos, true))
	}
}

func (e *extractor) name(seg Segment, pos int) {
	f := e.fields
	e.entity = seg.Get("EntityIdentifier")
	e.person = nil
	last := seg.Get("LastOrOrganizationName")
	party := Party{Name: last, ID: seg.Get("IDCode")}

	switch e.entity {
	case "PR":
		if e.p.result.Type == TypePatientInformation {
			f.Insurance = append(f.Insurance, Insurance{Payer: party})
			e.insurer = &f.Insurance[len(f.Insurance)-1]
			return
		}
		f.Payer = party
	case "X3":
		f.Payer = party
	case "1P":
		f.Provider = Provider{NPI: party.ID}
		if seg.Get("EntityType") == "2" {
			f.Provider.OrganizationName = last
		} else {
			f.Provider.LastName = last
			f.Provider.FirstName = seg.Get("FirstName")
		}
	case "IL", "QC":
		f.Subscriber.MemberID = party.ID
		f.Subscriber.LastName = last
		f.Subscriber.FirstName = seg.Get("FirstName")
		f.Subscriber.MiddleName = seg.Get("MiddleName")
		e.person = &f.Subscriber
		if party.ID == "" {
			e.warn(pos, seg.ID, "member id (NM1-09) is missing")
		}
	case "03":
		f.Dependent = &Dependent{LastName: last, FirstName: seg.Get("FirstName")}
	case "41":
		f.Submitter = party
	case "40":
		f.Receiver = party
	}
	e.insurer = nil
}

func (e *extractor) reference(seg Segment) {
	qualifier, value := seg.Get("Qualifier"), seg.Get("Identification")
	switch {
	case qualifier == "NT":
		e.fields.AdministrativeReference = value
	case e.insurer != nil && qualifier == "IG":
		e.insurer.PolicyNumber = value
	case e.insurer != nil && qualifier == "6P":
		e.insurer.GroupNumber = value
	case e.person != nil && qualifier == "6P":
		e.person.GroupNumber = value
	}
}

func (e *extractor) address() *Address {
	if e.person.Address == nil {
		e.person.Address = &Address{}
	}
	return e.person.Address
}

func (e *extractor) demographics(seg Segment, pos int) {
	dob, err := ParseD8(seg.Get("DateOfBirth"))
	if err != nil {
		e.warn(pos, seg.ID, "date of birth %q is not a CCYYMMDD date", seg.Get("DateOfBirth"))
		return
	}
	d := &Demographics{DateOfBirth: dob, Gender: seg.Get("Gender")}
	switch {
	case e.entity == "03" && e.fields.Dependent != nil:
		e.fields.Dependent.Demographics = d
	case e.person != nil:
		e.person.Demographics = d
	default:
		e.warn(pos, seg.ID, "demographics do not follow a member name")
	}
}

func (e *extractor) date(seg Segment, pos int) {
	qualifier, format, period := seg.Get("Qualifier"), seg.Get("Format"), seg.Get("Period")
	switch qualifier {
	case "291", "472":
		d, err := ParseD8(period)
		if format != "D8" || err != nil {
			e.warn(pos, seg.ID, "service date %q is not a D8 date", period)
			return
		}
		e.fields.ServiceDate = &d
	case "AAH":
		from, to, ok := strings.Cut(period, "-")
		if format != "RD8" || !ok {
			e.warn(pos, seg.ID, "validity period %q is not an RD8 range", period)
			return
		}
		fd, ferr := ParseD8(from)
		td, terr := ParseD8(to)
		if ferr != nil || terr != nil {
			e.warn(pos, seg.ID, "validity period %q is not an RD8 range", period)
			return
		}
		dec := e.decision()
		dec.EffectiveFrom, dec.EffectiveTo = &fd, &td
	}
}

func (e *extractor) benefit(seg Segment, pos int) {
	f := e.fields
	b := Benefit{
		InfoCode:        seg.Get("InfoCode"),
		CoverageLevel:   seg.Get("CoverageLevel"),
		ServiceType:     seg.Get("ServiceType"),
		InsuranceType:   seg.Get("InsuranceType"),
		PlanDescription: seg.Get("PlanDescription"),
		TimePeriod:      seg.Get("TimePeriod"),
		InPlanNetwork:   seg.Get("InPlanNetwork"),
	}
	var err error
	if b.Amount, err = parseAmount(seg.Get("Amount")); err != nil {
		e.warn(pos, seg.ID, "benefit amount %q is not numeric", seg.Get("Amount"))
	}
	if b.Percent, err = parseAmount(seg.Get("Percent")); err != nil {
		e.warn(pos, seg.ID, "benefit percent %q is not numeric", seg.Get("Percent"))
	}
	f.Benefits = append(f.Benefits, b)

	for _, st := range e.split(b.ServiceType) {
		f.ServiceTypes = appendUnique(f.ServiceTypes, st)
	}

	// The first EB that states coverage either way decides eligibility.
	if f.Eligible == nil {
		switch {
		case activeInfoCodes[b.InfoCode]:
			v := true
			f.Eligible = &v
		case inactiveInfoCodes[b.InfoCode]:
			v := false
			f.Eligible = &v
		}
	}
}

func (e *extractor) message(text string) {
	f := e.fields
	if e.p.result.Type == TypePatientInformation {
		switch {
		case strings.HasPrefix(text, allergyPrefix):
			f.Allergies = append(f.Allergies, strings.TrimPrefix(text, allergyPrefix))
			return
		case strings.HasPrefix(text, medicationPrefix):
			f.Medications = append(f.Medications, strings.TrimPrefix(text, medicationPrefix))
			return
		}
	}
	f.Messages = append(f.Messages, text)
}

func (e *extractor) decision() *Decision {
	if e.fields.Decision == nil {
		e.fields.Decision = &Decision{}
	}
	return e.fields.Decision
}

func (e *extractor) serviceLine(seg Segment, pos int, institutional bool) ServiceLine {
	s := ServiceLine{Institutional: institutional}
	procedure := 1
	if institutional {
		s.RevenueCode = seg.Get("RevenueCode")
		procedure = 2
	} else {
		s.PlaceOfService = seg.Get("PlaceOfService")
	}
	s.ProcedureQualifier = seg.Component(procedure, 1)
	s.ProcedureCode = seg.Component(procedure, 2)
	if len(seg.Elements) >= procedure {
		if parts := seg.Elements[procedure-1].Components; len(parts) > 2 {
			s.Modifiers = append([]string(nil), parts[2:]...)
		}
	}

	charge, err := parseAmount(seg.Get("Charge"))
	if err != nil {
		e.warn(pos, seg.ID, "charge %q is not numeric", seg.Get("Charge"))
	}
	s.Charge = charge
	if units, err := parseAmount(seg.Get("Units")); err != nil {
		e.warn(pos, seg.ID, "units %q is not numeric", seg.Get("Units"))
	} else if units != nil {
		s.Units = *units
	}
	return s
}

func (e *extractor) split(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, e.repeat)
}

// expect warns about fields the transaction type always carries but that
// could not be found.
func (e *extractor) expect() {
	f := e.fields
	switch e.p.result.Type {
	case TypeEligibilityInquiry, TypeEligibilityResponse, TypeAuthorization:
		if f.Payer.Name == "" && f.Payer.ID == "" {
			e.warn(0, "NM1", "information source name was not found")
		}
		if f.Provider.NPI == "" {
			e.warn(0, "NM1", "provider NPI was not found")
		}
		if f.Subscriber.LastName == "" && f.Subscriber.MemberID == "" {
			e.warn(0, "NM1", "subscriber name was not found")
		}
		if len(f.TraceNumbers) == 0 {
			e.warn(0, "TRN", "trace number was not found")
		}
	case TypePatientInformation:
		if f.Subscriber.LastName == "" && f.Subscriber.MemberID == "" {
			e.warn(0, "NM1", "patient name was not found")
		}
	}
	if e.p.result.Type == TypeEligibilityResponse && f.Eligible == nil {
		e.warn(0, "EB", "no eligibility or benefit line states whether coverage is active")
	}
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
