package x12

// DefaultServiceType is EQ-01 "30", health benefit plan coverage, used when
// an eligibility inquiry names no service type.
const DefaultServiceType = "30"

const (
	coverageActiveMessage   = "COVERAGE IS ACTIVE"
	coverageNotFoundMessage = "COVERAGE NOT FOUND"
)

// EligibilityRequest is the domain form of a 270 eligibility inquiry.
type EligibilityRequest struct {
	Payer      Party      `json:"payer"`
	Provider   Provider   `json:"provider"`
	Subscriber Member     `json:"subscriber"`
	Dependent  *Dependent `json:"dependent,omitempty"`
	// ServiceTypes are EQ-01 codes. Empty means DefaultServiceType.
	ServiceTypes []string `json:"serviceTypes,omitempty"`
	ServiceDate  *Date    `json:"serviceDate,omitempty"`
	// TraceNumber is TRN-02. Generated from the control numbers when empty.
	TraceNumber string `json:"traceNumber,omitempty"`
	ReferenceID string `json:"referenceId,omitempty"`
}

func (r EligibilityRequest) TransactionType() TransactionType { return TypeEligibilityInquiry }

// Validate reports the first required field that is missing or malformed.
func (r EligibilityRequest) Validate() error {
	c := fieldChecker{tt: TypeEligibilityInquiry}
	c.require("Payer.Name", r.Payer.Name)
	c.require("Payer.ID", r.Payer.ID)
	c.provider(r.Provider)
	c.member("Subscriber", r.Subscriber)
	if r.Dependent != nil {
		c.require("Dependent.LastName", r.Dependent.LastName)
		c.demographics("Dependent", r.Dependent.Demographics)
	}
	return c.err
}

// serviceTypes applies the default health benefit plan coverage code.
func (r EligibilityRequest) serviceTypes() []string {
	if len(r.ServiceTypes) == 0 {
		return []string{DefaultServiceType}
	}
	return r.ServiceTypes
}

func (r EligibilityRequest) encode(h Header) ([]Segment, error) {
	return EncodeEligibilityInquiry(r, h)
}

// EncodeEligibilityInquiry maps a 270 request onto its transaction body:
//
//	BHT
//	HL 20  NM1*PR
//	HL 21  NM1*1P
//	HL 22  TRN  NM1*IL  [REF*6P]  [DMG]  [DTP*291]  EQ...
//	[HL 23 TRN  NM1*03  [DMG]  [DTP*291]  EQ...]
//
// TRN, DTP and EQ belong to whichever loop describes the patient.
func EncodeEligibilityInquiry(r EligibilityRequest, h Header) ([]Segment, error) {
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
	l.bht("0022", "13", reference, h.CreatedAt)

	source := l.hl(0, "20", true)
	l.organization("PR", r.Payer, "PI")

	receiver := l.hl(source, "21", true)
	l.provider(r.Provider)

	subscriber := l.hl(receiver, "22", r.Dependent != nil)
	if r.Dependent == nil {
		l.trace("1", trace, h.OriginatorID)
	}
	l.member("IL", r.Subscriber)
	if r.Subscriber.GroupNumber != "" {
		l.add("REF", "6P", r.Subscriber.GroupNumber)
	}
	l.demographics(r.Subscriber.Demographics)

	if r.Dependent != nil {
		l.hl(subscriber, "23", false)
		l.trace("1", trace, h.OriginatorID)
		l.dependent(*r.Dependent)
		l.demographics(r.Dependent.Demographics)
	}

	l.date("291", r.ServiceDate)
	for _, st := range r.serviceTypes() {
		l.add("EQ", st)
	}

	return l.segments, nil
}

// Benefit is one EB eligibility or benefit line of a 271.
type Benefit struct {
	// InfoCode is EB-01: "1" active coverage, "6" inactive, "A" co-insurance,
	// "B" co-payment, "C" deductible, "G" out of pocket.
	InfoCode        string   `json:"infoCode"`
	CoverageLevel   string   `json:"coverageLevel,omitempty"`
	ServiceType     string   `json:"serviceType,omitempty"`
	InsuranceType   string   `json:"insuranceType,omitempty"`
	PlanDescription string   `json:"planDescription,omitempty"`
	TimePeriod      string   `json:"timePeriod,omitempty"`
	Amount          *float64 `json:"amount,omitempty"`
	Percent         *float64 `json:"percent,omitempty"`
	InPlanNetwork   string   `json:"inPlanNetwork,omitempty"`
}

// activeInfoCodes are EB-01 values that mean coverage exists.
var activeInfoCodes = map[string]bool{"1": true, "2": true, "3": true, "4": true, "5": true}

// inactiveInfoCodes are EB-01 values that mean coverage does not exist.
var inactiveInfoCodes = map[string]bool{"6": true, "7": true, "8": true, "V": true}

// Rejection is an AAA request validation segment.
type Rejection struct {
	ReasonCode   string `json:"reasonCode"`
	FollowUpCode string `json:"followUpCode,omitempty"`
}

// EligibilityResponse is the domain form of a 271 eligibility response.
type EligibilityResponse struct {
	Payer      Party      `json:"payer"`
	Provider   Provider   `json:"provider"`
	Subscriber Member     `json:"subscriber"`
	Dependent  *Dependent `json:"dependent,omitempty"`
	// TraceNumber echoes TRN-02 of the 270 being answered.
	TraceNumber string     `json:"traceNumber"`
	ReferenceID string     `json:"referenceId,omitempty"`
	IsEligible  bool       `json:"isEligible"`
	Benefits    []Benefit  `json:"benefits,omitempty"`
	Rejection   *Rejection `json:"rejection,omitempty"`
	// Message overrides the default MSG summary line.
	Message string `json:"message,omitempty"`
}

func (r EligibilityResponse) TransactionType() TransactionType { return TypeEligibilityResponse }

// Validate reports the first required field that is missing or malformed.
func (r EligibilityResponse) Validate() error {
	c := fieldChecker{tt: TypeEligibilityResponse}
	c.require("TraceNumber", r.TraceNumber)
	c.require("Payer.Name", r.Payer.Name)
	c.require("Payer.ID", r.Payer.ID)
	c.provider(r.Provider)
	c.member("Subscriber", r.Subscriber)
	if r.Dependent != nil {
		c.require("Dependent.LastName", r.Dependent.LastName)
		c.demographics("Dependent", r.Dependent.Demographics)
	}
	for i, b := range r.Benefits {
		c.require(fmtIndex("Benefits", i, "InfoCode"), b.InfoCode)
	}
	if r.Rejection != nil {
		c.require("Rejection.ReasonCode", r.Rejection.ReasonCode)
	}
	return c.err
}

func (r EligibilityResponse) encode(h Header) ([]Segment, error) {
	return EncodeEligibilityResponse(r, h)
}

// EncodeEligibilityResponse maps a 271 response onto its transaction body.
// It mirrors the 270 tree, echoes the inquiry trace with TRN type 2, and
// closes the patient loop with EB lines and an MSG summary.
func EncodeEligibilityResponse(r EligibilityResponse, h Header) ([]Segment, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	reference := r.ReferenceID
	if reference == "" {
		reference = h.Control.Transaction
	}

	var l segmentList
	l.bht("0022", "11", reference, h.CreatedAt)

	source := l.hl(0, "20", true)
	l.organization("PR", r.Payer, "PI")

	receiver := l.hl(source, "21", true)
	l.provider(r.Provider)

	subscriber := l.hl(receiver, "22", r.Dependent != nil)
	if r.Dependent == nil {
		l.trace("2", r.TraceNumber, h.OriginatorID)
	}
	l.member("IL", r.Subscriber)
	if r.Subscriber.GroupNumber != "" {
		l.add("REF", "6P", r.Subscriber.GroupNumber)
	}
	l.address(r.Subscriber.Address)
	if r.Dependent == nil {
		l.rejection(r.Rejection)
	}
	l.demographics(r.Subscriber.Demographics)

	if r.Dependent != nil {
		l.hl(subscriber, "23", false)
		l.trace("2", r.TraceNumber, h.OriginatorID)
		l.dependent(*r.Dependent)
		l.rejection(r.Rejection)
		l.demographics(r.Dependent.Demographics)
	}

	for _, b := range r.benefits() {
		l.add("EB", b.InfoCode, b.CoverageLevel, b.ServiceType, b.InsuranceType, b.PlanDescription,
			b.TimePeriod, formatAmount(b.Amount), formatAmount(b.Percent), "", "", "", b.InPlanNetwork)
	}

	msg := r.Message
	if msg == "" {
		msg = coverageNotFoundMessage
		if r.IsEligible {
			msg = coverageActiveMessage
		}
	}
	l.add("MSG", msg)

	return l.segments, nil
}

// benefits returns the caller's EB lines, or a single active/inactive line
// derived from the eligibility flag.
func (r EligibilityResponse) benefits() []Benefit {
	if len(r.Benefits) > 0 {
		return r.Benefits
	}
	code := "6"
	if r.IsEligible {
		code = "1"
	}
	return []Benefit{{InfoCode: code, ServiceType: DefaultServiceType}}
}

func (l *segmentList) rejection(r *Rejection) {
	if r == nil {
		return
	}
	l.add("AAA", "N", "", r.ReasonCode, r.FollowUpCode)
}
