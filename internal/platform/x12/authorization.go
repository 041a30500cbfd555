package x12

import (
	"strconv"
)

const (
	// DefaultRequestCategory is UM-01 "HS", health services review.
	DefaultRequestCategory = "HS"
	// DefaultCertificationType is UM-02 "I", initial request.
	DefaultCertificationType = "I"
)

// decisionActions are the HCR-01 action codes a 278 response may carry.
var decisionActions = map[string]string{
	"A1": "certified in total",
	"A2": "certified partial",
	"A3": "not certified",
	"A4": "pended",
	"A6": "modified",
	"C":  "cancelled",
	"CT": "contact payer",
	"NA": "no action required",
}

// ServiceLine is one requested service of a 278. Professional lines are
// written as SV1, institutional lines as SV2.
type ServiceLine struct {
	Institutional bool   `json:"institutional,omitempty"`
	RevenueCode   string `json:"revenueCode,omitempty"`
	// ProcedureQualifier defaults to "HC" (HCPCS/CPT).
	ProcedureQualifier string   `json:"procedureQualifier,omitempty"`
	ProcedureCode      string   `json:"procedureCode"`
	Modifiers          []string `json:"modifiers,omitempty"`
	Charge             *float64 `json:"charge,omitempty"`
	// Units defaults to 1.
	Units          float64 `json:"units,omitempty"`
	PlaceOfService string  `json:"placeOfService,omitempty"`
}

func (s ServiceLine) procedure() Element {
	qualifier := s.ProcedureQualifier
	if qualifier == "" {
		qualifier = "HC"
	}
	parts := append([]string{qualifier, s.ProcedureCode}, s.Modifiers...)
	return Composite(parts...)
}

func (s ServiceLine) units() string {
	if s.Units == 0 {
		return "1"
	}
	return strconv.FormatFloat(s.Units, 'f', -1, 64)
}

func (s ServiceLine) segment() Segment {
	if s.Institutional {
		return Segment{ID: "SV2", Elements: []Element{
			Simple(s.RevenueCode), s.procedure(), Simple(formatAmount(s.Charge)), Simple("UN"), Simple(s.units()),
		}}
	}
	return Segment{ID: "SV1", Elements: []Element{
		s.procedure(), Simple(formatAmount(s.Charge)), Simple("UN"), Simple(s.units()), Simple(s.PlaceOfService),
	}}
}

// Review holds the UM request classification shared by 278 requests and
// responses.
type Review struct {
	RequestCategory   string `json:"requestCategory,omitempty"`
	CertificationType string `json:"certificationType,omitempty"`
	ServiceType       string `json:"serviceType"`
}

func (r Review) segment() Segment {
	category := r.RequestCategory
	if category == "" {
		category = DefaultRequestCategory
	}
	certification := r.CertificationType
	if certification == "" {
		certification = DefaultCertificationType
	}
	return NewSegment("UM", category, certification, r.ServiceType)
}

// AuthorizationRequest is the domain form of a 278 prior authorization
// inquiry.
type AuthorizationRequest struct {
	UMO          Party         `json:"umo"`
	Provider     Provider      `json:"provider"`
	Subscriber   Member        `json:"subscriber"`
	Review       Review        `json:"review"`
	Diagnoses    []string      `json:"diagnoses"`
	ServiceDate  *Date         `json:"serviceDate,omitempty"`
	ServiceLines []ServiceLine `json:"serviceLines,omitempty"`
	TraceNumber  string        `json:"traceNumber,omitempty"`
	ReferenceID  string        `json:"referenceId,omitempty"`
}

func (r AuthorizationRequest) TransactionType() TransactionType { return TypeAuthorization }

// Validate reports the first required field that is missing or malformed.
func (r AuthorizationRequest) Validate() error {
	c := fieldChecker{tt: TypeAuthorization}
	c.require("UMO.Name", r.UMO.Name)
	c.require("UMO.ID", r.UMO.ID)
	c.provider(r.Provider)
	c.member("Subscriber", r.Subscriber)
	c.require("Review.ServiceType", r.Review.ServiceType)
	if len(r.Diagnoses) == 0 {
		c.require("Diagnoses", "")
	}
	for i, d := range r.Diagnoses {
		c.require(fmtIndex("Diagnoses", i, "Code"), d)
	}
	c.serviceLines(r.ServiceLines)
	return c.err
}

func (c *fieldChecker) serviceLines(lines []ServiceLine) {
	for i, s := range lines {
		c.require(fmtIndex("ServiceLines", i, "ProcedureCode"), s.ProcedureCode)
		if s.Institutional {
			c.require(fmtIndex("ServiceLines", i, "RevenueCode"), s.RevenueCode)
		}
	}
}

func (r AuthorizationRequest) encode(h Header) ([]Segment, error) {
	return EncodeAuthorizationRequest(r, h)
}

// EncodeAuthorizationRequest maps a 278 request onto its transaction body:
//
//	BHT
//	HL 20  NM1*X3
//	HL 21  NM1*1P
//	HL 22  NM1*IL  [DMG]
//	HL EV  TRN  UM  [DTP*472]  HI
//	(HL SS  SV1|SV2)...
func EncodeAuthorizationRequest(r AuthorizationRequest, h Header) ([]Segment, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	trace := r.TraceNumber
	if trace == "" {
		trace = derivedID(h, "trace")
	}
	reference := r.ReferenceID
	if reference == "" {
		reference = h.Control.Transaction
	}

	var l segmentList
	l.bht("0007", "13", reference, h.CreatedAt)
	event := l.authorizationTree(r.UMO, r.Provider, r.Subscriber, len(r.ServiceLines) > 0)

	l.trace("1", trace, h.OriginatorID)
	l.addSegment(r.Review.segment())
	l.date("472", r.ServiceDate)
	for _, seg := range diagnosisSegments(r.Diagnoses) {
		l.addSegment(seg)
	}

	l.serviceLines(event, r.ServiceLines)
	return l.segments, nil
}

// authorizationTree writes the UMO, provider, subscriber and patient event
// levels and returns the event HL id.
func (l *segmentList) authorizationTree(umo Party, p Provider, m Member, services bool) int {
	source := l.hl(0, "20", true)
	l.organization("X3", umo, "PI")

	receiver := l.hl(source, "21", true)
	l.provider(p)

	subscriber := l.hl(receiver, "22", true)
	l.member("IL", m)
	l.demographics(m.Demographics)

	return l.hl(subscriber, "EV", services)
}

func (l *segmentList) serviceLines(event int, lines []ServiceLine) {
	for _, s := range lines {
		l.hl(event, "SS", false)
		l.addSegment(s.segment())
	}
}

// Decision is the HCR health care services review outcome of a 278 response.
type Decision struct {
	Action              string `json:"action"`
	CertificationNumber string `json:"certificationNumber,omitempty"`
	ReasonCode          string `json:"reasonCode,omitempty"`
	EffectiveFrom       *Date  `json:"effectiveFrom,omitempty"`
	EffectiveTo         *Date  `json:"effectiveTo,omitempty"`
}

// Approved reports whether the action certifies any part of the request.
func (d Decision) Approved() bool {
	return d.Action == "A1" || d.Action == "A2" || d.Action == "A6"
}

// Description names the action code.
func (d Decision) Description() string {
	return decisionActions[d.Action]
}

// AuthorizationResponse is the domain form of a 278 prior authorization
// decision.
type AuthorizationResponse struct {
	UMO        Party    `json:"umo"`
	Provider   Provider `json:"provider"`
	Subscriber Member   `json:"subscriber"`
	Review     Review   `json:"review"`
	// TraceNumber echoes TRN-02 of the 278 request being answered.
	TraceNumber             string        `json:"traceNumber"`
	ReferenceID             string        `json:"referenceId,omitempty"`
	Decision                Decision      `json:"decision"`
	AdministrativeReference string        `json:"administrativeReference,omitempty"`
	Diagnoses               []string      `json:"diagnoses,omitempty"`
	ServiceLines            []ServiceLine `json:"serviceLines,omitempty"`
	Message                 string        `json:"message,omitempty"`
}

func (r AuthorizationResponse) TransactionType() TransactionType { return TypeAuthorization }

// Validate reports the first required field that is missing or malformed.
func (r AuthorizationResponse) Validate() error {
	c := fieldChecker{tt: TypeAuthorization}
	c.require("TraceNumber", r.TraceNumber)
	c.require("UMO.Name", r.UMO.Name)
	c.require("UMO.ID", r.UMO.ID)
	c.provider(r.Provider)
	c.member("Subscriber", r.Subscriber)
	c.require("Review.ServiceType", r.Review.ServiceType)
	c.require("Decision.Action", r.Decision.Action)
	if _, ok := decisionActions[r.Decision.Action]; !ok && r.Decision.Action != "" {
		c.invalid("Decision.Action", r.Decision.Action, "unknown HCR action code")
	}
	if r.Decision.Approved() {
		c.require("Decision.CertificationNumber", r.Decision.CertificationNumber)
	}
	if r.Decision.Action == "A3" {
		c.require("Decision.ReasonCode", r.Decision.ReasonCode)
	}
	if (r.Decision.EffectiveFrom == nil) != (r.Decision.EffectiveTo == nil) {
		c.require("Decision.EffectiveFrom/EffectiveTo", "")
	}
	for i, d := range r.Diagnoses {
		c.require(fmtIndex("Diagnoses", i, "Code"), d)
	}
	c.serviceLines(r.ServiceLines)
	return c.err
}

func (r AuthorizationResponse) encode(h Header) ([]Segment, error) {
	return EncodeAuthorizationResponse(r, h)
}

// EncodeAuthorizationResponse maps a 278 decision onto its transaction
// body. It repeats the request tree and adds HCR, the certification
// reference and validity period to the patient event level.
func EncodeAuthorizationResponse(r AuthorizationResponse, h Header) ([]Segment, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	reference := r.ReferenceID
	if reference == "" {
		reference = h.Control.Transaction
	}

	var l segmentList
	l.bht("0007", "11", reference, h.CreatedAt)
	event := l.authorizationTree(r.UMO, r.Provider, r.Subscriber, len(r.ServiceLines) > 0)

	l.trace("2", r.TraceNumber, h.OriginatorID)
	l.addSegment(r.Review.segment())
	l.add("HCR", r.Decision.Action, r.Decision.CertificationNumber, r.Decision.ReasonCode)
	if r.AdministrativeReference != "" {
		l.add("REF", "NT", r.AdministrativeReference)
	}
	if r.Decision.EffectiveFrom != nil && r.Decision.EffectiveTo != nil {
		l.add("DTP", "AAH", "RD8", r.Decision.EffectiveFrom.D8()+"-"+r.Decision.EffectiveTo.D8())
	}
	for _, seg := range diagnosisSegments(r.Diagnoses) {
		l.addSegment(seg)
	}
	if r.Message != "" {
		l.add("MSG", r.Message)
	}

	l.serviceLines(event, r.ServiceLines)
	return l.segments, nil
}
