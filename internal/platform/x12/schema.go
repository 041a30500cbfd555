package x12

// TransactionType is the X12 transaction set identifier carried in ST-01.
type TransactionType string

const (
	TypeEligibilityInquiry  TransactionType = "270"
	TypeEligibilityResponse TransactionType = "271"
	TypePatientInformation  TransactionType = "275"
	TypeAuthorization       TransactionType = "278"
)

// ElementSpec describes one element position of a segment.
type ElementSpec struct {
	Name     string
	Required bool
	// Width is the mandated fixed width. Only ISA elements are fixed width.
	Width     int
	Composite bool
	// Delimiter marks elements whose value is itself a delimiter (ISA-11,
	// ISA-16) and is therefore exempt from collision checks.
	Delimiter bool
}

// SegmentSchema is the ordered element layout of one segment identifier.
type SegmentSchema struct {
	ID       string
	Elements []ElementSpec
}

// Index returns the 1-based position of the named element, or 0.
func (s *SegmentSchema) Index(name string) int {
	for i, el := range s.Elements {
		if el.Name == name {
			return i + 1
		}
	}
	return 0
}

// Spec returns the element spec at a 1-based position.
func (s *SegmentSchema) Spec(position int) (ElementSpec, bool) {
	if s == nil || position < 1 || position > len(s.Elements) {
		return ElementSpec{}, false
	}
	return s.Elements[position-1], true
}

// TransactionSchema lists, for one transaction type, the segments it knows,
// the segments it requires, and the allowed parent level codes of its HL tree.
type TransactionSchema struct {
	Type         TransactionType
	FunctionalID string
	Version      string
	Required     []string
	Segments     map[string]*SegmentSchema
	// Hierarchy maps an HL level code to the level codes allowed as its
	// parent. An empty string allows the level at the root.
	Hierarchy map[string][]string
}

// Segment returns the layout of a segment identifier within this
// transaction type, or nil when the type does not use that segment.
func (t *TransactionSchema) Segment(id string) *SegmentSchema {
	return t.Segments[id]
}

// AllowsParent reports whether an HL with level code child may hang off a
// node with level code parent ("" for the root).
func (t *TransactionSchema) AllowsParent(child, parent string) bool {
	for _, p := range t.Hierarchy[child] {
		if p == parent {
			return true
		}
	}
	return false
}

func req(name string) ElementSpec { return ElementSpec{Name: name, Required: true} }
func opt(name string) ElementSpec { return ElementSpec{Name: name} }
func comp(name string, required bool) ElementSpec {
	return ElementSpec{Name: name, Required: required, Composite: true}
}
func fixed(name string, width int) ElementSpec {
	return ElementSpec{Name: name, Required: true, Width: width}
}

// segmentSchemas holds the 005010 element layouts shared by the transaction
// types below.
var segmentSchemas = map[string]*SegmentSchema{
	"ISA": {ID: "ISA", Elements: []ElementSpec{
		fixed("AuthorizationQualifier", 2),
		{Name: "AuthorizationInformation", Width: 10},
		fixed("SecurityQualifier", 2),
		{Name: "SecurityInformation", Width: 10},
		fixed("SenderQualifier", 2),
		fixed("SenderID", 15),
		fixed("ReceiverQualifier", 2),
		fixed("ReceiverID", 15),
		fixed("Date", 6),
		fixed("Time", 4),
		{Name: "RepetitionSeparator", Required: true, Width: 1, Delimiter: true},
		fixed("Version", 5),
		fixed("ControlNumber", 9),
		fixed("AckRequested", 1),
		fixed("UsageIndicator", 1),
		{Name: "ComponentSeparator", Required: true, Width: 1, Delimiter: true},
	}},
	"GS": {ID: "GS", Elements: []ElementSpec{
		req("FunctionalID"), req("ApplicationSender"), req("ApplicationReceiver"),
		req("Date"), req("Time"), req("ControlNumber"), req("Agency"), req("Version"),
	}},
	"ST":  {ID: "ST", Elements: []ElementSpec{req("TransactionSetID"), req("ControlNumber"), opt("ImplementationReference")}},
	"SE":  {ID: "SE", Elements: []ElementSpec{req("SegmentCount"), req("ControlNumber")}},
	"GE":  {ID: "GE", Elements: []ElementSpec{req("TransactionSetCount"), req("ControlNumber")}},
	"IEA": {ID: "IEA", Elements: []ElementSpec{req("GroupCount"), req("ControlNumber")}},
	"BHT": {ID: "BHT", Elements: []ElementSpec{
		req("Structure"), req("Purpose"), opt("Reference"), opt("Date"), opt("Time"), opt("TransactionTypeCode"),
	}},
	"BGN": {ID: "BGN", Elements: []ElementSpec{req("Purpose"), req("Reference"), req("Date"), opt("Time")}},
	"HL":  {ID: "HL", Elements: []ElementSpec{req("ID"), opt("ParentID"), req("LevelCode"), opt("ChildCode")}},
	"NM1": {ID: "NM1", Elements: []ElementSpec{
		req("EntityIdentifier"), req("EntityType"), opt("LastOrOrganizationName"), opt("FirstName"),
		opt("MiddleName"), opt("Prefix"), opt("Suffix"), opt("IDQualifier"), opt("IDCode"),
	}},
	"REF": {ID: "REF", Elements: []ElementSpec{req("Qualifier"), req("Identification"), opt("Description")}},
	"N3":  {ID: "N3", Elements: []ElementSpec{req("Address1"), opt("Address2")}},
	"N4":  {ID: "N4", Elements: []ElementSpec{opt("City"), opt("State"), opt("PostalCode"), opt("Country")}},
	"DMG": {ID: "DMG", Elements: []ElementSpec{req("Format"), req("DateOfBirth"), opt("Gender")}},
	"DTP": {ID: "DTP", Elements: []ElementSpec{req("Qualifier"), req("Format"), req("Period")}},
	"TRN": {ID: "TRN", Elements: []ElementSpec{req("TraceType"), req("TraceNumber"), opt("OriginatorID"), opt("OriginatorSupplemental")}},
	"EQ":  {ID: "EQ", Elements: []ElementSpec{opt("ServiceType"), comp("Procedure", false), opt("CoverageLevel")}},
	"EB": {ID: "EB", Elements: []ElementSpec{
		req("InfoCode"), opt("CoverageLevel"), opt("ServiceType"), opt("InsuranceType"), opt("PlanDescription"),
		opt("TimePeriod"), opt("Amount"), opt("Percent"), opt("QuantityQualifier"), opt("Quantity"),
		opt("AuthorizationRequired"), opt("InPlanNetwork"), comp("Procedure", false),
	}},
	"AAA": {ID: "AAA", Elements: []ElementSpec{req("Valid"), opt("Agency"), opt("RejectReason"), opt("FollowUp")}},
	"MSG": {ID: "MSG", Elements: []ElementSpec{req("Text")}},
	"LX":  {ID: "LX", Elements: []ElementSpec{req("Number")}},
	"HI": {ID: "HI", Elements: []ElementSpec{
		comp("Code1", true), comp("Code2", false), comp("Code3", false), comp("Code4", false),
		comp("Code5", false), comp("Code6", false), comp("Code7", false), comp("Code8", false),
		comp("Code9", false), comp("Code10", false), comp("Code11", false), comp("Code12", false),
	}},
	"UM": {ID: "UM", Elements: []ElementSpec{
		req("RequestCategory"), req("CertificationType"), opt("ServiceType"), comp("Facility", false),
	}},
	"HCR": {ID: "HCR", Elements: []ElementSpec{req("Action"), opt("CertificationNumber"), opt("Reason")}},
	"SV1": {ID: "SV1", Elements: []ElementSpec{
		comp("Procedure", true), opt("Charge"), opt("UnitBasis"), opt("Units"), opt("PlaceOfService"),
	}},
	"SV2": {ID: "SV2", Elements: []ElementSpec{
		opt("RevenueCode"), comp("Procedure", false), opt("Charge"), opt("UnitBasis"), opt("Units"),
	}},
}

var envelopeSegments = []string{"ISA", "GS", "ST", "SE", "GE", "IEA"}

// eligibilityHierarchy is the 270/271 level table: payer, provider,
// subscriber, dependent.
var eligibilityHierarchy = map[string][]string{
	"20": {""},
	"21": {"20"},
	"22": {"21"},
	"23": {"22"},
}

// authorizationHierarchy extends the eligibility table with the patient
// event and service levels of the 278.
var authorizationHierarchy = map[string][]string{
	"20": {""},
	"21": {"20"},
	"22": {"21"},
	"23": {"22"},
	"EV": {"22", "23"},
	"SS": {"EV"},
}

// hierarchyLevelNames names the states of the HL state machine.
var hierarchyLevelNames = map[string]string{
	"":   "root",
	"20": "information source",
	"21": "information receiver",
	"22": "subscriber",
	"23": "dependent",
	"EV": "patient event",
	"SS": "service",
}

func newTransactionSchema(tt TransactionType, functionalID, version string, required []string, hierarchy map[string][]string, ids ...string) *TransactionSchema {
	s := &TransactionSchema{
		Type:         tt,
		FunctionalID: functionalID,
		Version:      version,
		Required:     required,
		Segments:     make(map[string]*SegmentSchema, len(ids)+len(envelopeSegments)),
		Hierarchy:    hierarchy,
	}
	for _, id := range append(append([]string{}, envelopeSegments...), ids...) {
		s.Segments[id] = segmentSchemas[id]
	}
	return s
}

var transactionSchemas = map[TransactionType]*TransactionSchema{
	TypeEligibilityInquiry: newTransactionSchema(TypeEligibilityInquiry, "HS", "005010X279A1",
		[]string{"ISA", "GS", "ST", "BHT", "HL", "NM1", "EQ", "SE", "GE", "IEA"},
		eligibilityHierarchy,
		"BHT", "HL", "TRN", "NM1", "REF", "N3", "N4", "DMG", "DTP", "EQ"),
	TypeEligibilityResponse: newTransactionSchema(TypeEligibilityResponse, "HB", "005010X279A1",
		[]string{"ISA", "GS", "ST", "BHT", "HL", "NM1", "EB", "SE", "GE", "IEA"},
		eligibilityHierarchy,
		"BHT", "HL", "TRN", "NM1", "REF", "N3", "N4", "AAA", "DMG", "DTP", "EB", "MSG"),
	TypePatientInformation: newTransactionSchema(TypePatientInformation, "PI", "005010X210",
		[]string{"ISA", "GS", "ST", "BGN", "NM1", "TRN", "SE", "GE", "IEA"},
		nil,
		"BGN", "NM1", "LX", "TRN", "REF", "N3", "N4", "DMG", "HI", "MSG"),
	TypeAuthorization: newTransactionSchema(TypeAuthorization, "HI", "005010X217",
		[]string{"ISA", "GS", "ST", "BHT", "HL", "NM1", "UM", "SE", "GE", "IEA"},
		authorizationHierarchy,
		"BHT", "HL", "TRN", "NM1", "REF", "N3", "N4", "DMG", "DTP", "UM", "HCR", "HI", "SV1", "SV2", "MSG"),
}

// functionalIDTypes maps GS-01 back to a transaction type.
var functionalIDTypes = map[string]TransactionType{
	"HS": TypeEligibilityInquiry,
	"HB": TypeEligibilityResponse,
	"PI": TypePatientInformation,
	"HI": TypeAuthorization,
}

// SchemaFor returns the schema of a supported transaction type.
func SchemaFor(tt TransactionType) (*TransactionSchema, error) {
	s, ok := transactionSchemas[tt]
	if !ok {
		return nil, &UnsupportedTransactionTypeError{Type: string(tt)}
	}
	return s, nil
}

// ParseTransactionType validates a transaction set identifier.
func ParseTransactionType(s string) (TransactionType, error) {
	tt := TransactionType(s)
	if _, err := SchemaFor(tt); err != nil {
		return "", err
	}
	return tt, nil
}

// lookupSegment returns the layout of a segment within a transaction type,
// falling back to the shared table when the type is unknown.
func lookupSegment(tt TransactionType, id string) *SegmentSchema {
	if s, ok := transactionSchemas[tt]; ok {
		return s.Segment(id)
	}
	return segmentSchemas[id]
}
