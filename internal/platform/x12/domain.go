package x12

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	dateFormatISO = "2006-01-02"
	dateFormatD8  = "20060102"
)

// Date is a calendar date that reads and writes "YYYY-MM-DD" in JSON and
// CCYYMMDD in X12.
type Date struct {
	time.Time
}

// NewDate returns the date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseD8 parses an X12 D8 (CCYYMMDD) date.
func ParseD8(s string) (Date, error) {
	t, err := time.Parse(dateFormatD8, s)
	if err != nil {
		return Date{}, fmt.Errorf("x12: invalid D8 date %q", s)
	}
	return Date{t}, nil
}

// D8 returns the date as CCYYMMDD.
func (d Date) D8() string {
	return d.Format(dateFormatD8)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateFormatISO))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateFormatISO, s)
	if err != nil {
		if t, err = time.Parse(dateFormatD8, s); err != nil {
			return fmt.Errorf("x12: date %q must be YYYY-MM-DD", s)
		}
	}
	*d = Date{t}
	return nil
}

// Party is an organization identified by name and id: a payer, a
// utilization management organization, a submitter or a receiver.
type Party struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Provider is the information receiver. Either OrganizationName or LastName
// identifies it; NPI is always required.
type Provider struct {
	OrganizationName string `json:"organizationName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	FirstName        string `json:"firstName,omitempty"`
	NPI              string `json:"npi"`
}

// Name returns the organization name or "LAST, FIRST".
func (p Provider) Name() string {
	if p.OrganizationName != "" {
		return p.OrganizationName
	}
	if p.FirstName == "" {
		return p.LastName
	}
	return p.LastName + ", " + p.FirstName
}

// Demographics is the optional DMG group of a person.
type Demographics struct {
	DateOfBirth Date   `json:"dateOfBirth"`
	Gender      string `json:"gender,omitempty"`
}

// Address is the optional N3/N4 group of a person.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// Member is an insured person identified by a payer-assigned member id: the
// subscriber of 270/271/278 or the patient of a 275.
type Member struct {
	MemberID     string        `json:"memberId"`
	LastName     string        `json:"lastName"`
	FirstName    string        `json:"firstName,omitempty"`
	MiddleName   string        `json:"middleName,omitempty"`
	GroupNumber  string        `json:"groupNumber,omitempty"`
	Demographics *Demographics `json:"demographics,omitempty"`
	Address      *Address      `json:"address,omitempty"`
}

// Dependent is a patient covered through a subscriber and without a member
// id of their own.
type Dependent struct {
	LastName     string        `json:"lastName"`
	FirstName    string        `json:"firstName,omitempty"`
	Demographics *Demographics `json:"demographics,omitempty"`
}

// Header carries the per-transaction values encoders stamp into BHT/BGN and
// use to derive trace numbers the caller did not supply.
type Header struct {
	Control      ControlNumbers
	CreatedAt    time.Time
	OriginatorID string
}

// Request is a typed domain request the codec can encode.
type Request interface {
	TransactionType() TransactionType
	Validate() error
	encode(h Header) ([]Segment, error)
}

// NewRequest returns an empty request for an encode kind: "270", "271",
// "275", "278" or "278-response". It is used to decode requests from JSON.
func NewRequest(kind string) (Request, error) {
	switch kind {
	case "270":
		return &EligibilityRequest{}, nil
	case "271":
		return &EligibilityResponse{}, nil
	case "275":
		return &PatientInformation{}, nil
	case "278":
		return &AuthorizationRequest{}, nil
	case "278-response":
		return &AuthorizationResponse{}, nil
	default:
		return nil, &UnsupportedTransactionTypeError{Type: kind}
	}
}

var traceNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("x12.trace"))

// derivedID returns a 32-character identifier derived from the header, so a
// generated trace or reference number is unique per control number triple
// yet reproducible when control numbers are pinned.
func derivedID(h Header, purpose string) string {
	name := strings.Join([]string{purpose, h.OriginatorID, h.Control.Interchange, h.Control.Group, h.Control.Transaction}, "|")
	id := uuid.NewSHA1(traceNamespace, []byte(name))
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
}

// OriginatorID formats a TRN-03 originating company identifier: "9" followed
// by up to nine characters of the submitter id.
func OriginatorID(submitterID string) string {
	id := strings.TrimSpace(submitterID)
	if len(id) > 9 {
		id = id[:9]
	}
	return "9" + id
}

// segmentList accumulates a transaction body and numbers its HL loops.
type segmentList struct {
	segments []Segment
	lastHL   int
}

func (l *segmentList) add(id string, values ...string) {
	l.segments = append(l.segments, NewSegment(id, values...))
}

func (l *segmentList) addSegment(seg Segment) {
	l.segments = append(l.segments, seg)
}

// hl appends an HL segment under parent (0 for the root) and returns its id.
func (l *segmentList) hl(parent int, level string, children bool) int {
	l.lastHL++
	parentID := ""
	if parent > 0 {
		parentID = strconv.Itoa(parent)
	}
	child := "0"
	if children {
		child = "1"
	}
	l.add("HL", strconv.Itoa(l.lastHL), parentID, level, child)
	return l.lastHL
}

func (l *segmentList) bht(structure, purpose, reference string, at time.Time) {
	l.add("BHT", structure, purpose, reference, at.Format(dateFormatD8), at.Format("1504"))
}

func (l *segmentList) organization(entity string, p Party, qualifier string) {
	l.add("NM1", entity, "2", p.Name, "", "", "", "", qualifierFor(p.ID, qualifier), p.ID)
}

func (l *segmentList) provider(p Provider) {
	if p.OrganizationName != "" {
		l.add("NM1", "1P", "2", p.OrganizationName, "", "", "", "", "XX", p.NPI)
		return
	}
	l.add("NM1", "1P", "1", p.LastName, p.FirstName, "", "", "", "XX", p.NPI)
}

func (l *segmentList) member(entity string, m Member) {
	l.add("NM1", entity, "1", m.LastName, m.FirstName, m.MiddleName, "", "", "MI", m.MemberID)
}

func (l *segmentList) dependent(d Dependent) {
	l.add("NM1", "03", "1", d.LastName, d.FirstName)
}

func (l *segmentList) address(a *Address) {
	if a == nil {
		return
	}
	l.add("N3", a.Line1, a.Line2)
	l.add("N4", a.City, a.State, a.PostalCode)
}

func (l *segmentList) demographics(d *Demographics) {
	if d == nil {
		return
	}
	l.add("DMG", "D8", d.DateOfBirth.D8(), d.Gender)
}

func (l *segmentList) date(qualifier string, d *Date) {
	if d == nil {
		return
	}
	l.add("DTP", qualifier, "D8", d.D8())
}

func (l *segmentList) trace(traceType, number, originator string) {
	l.add("TRN", traceType, number, originator)
}

func qualifierFor(id, qualifier string) string {
	if id == "" {
		return ""
	}
	return qualifier
}

// fieldChecker collects the first missing or invalid field of a request.
type fieldChecker struct {
	tt  TransactionType
	err error
}

func (c *fieldChecker) require(field, value string) {
	if c.err == nil && strings.TrimSpace(value) == "" {
		c.err = &MissingDomainFieldError{Transaction: c.tt, Field: field}
	}
}

func (c *fieldChecker) invalid(field, value, reason string) {
	if c.err == nil {
		c.err = &InvalidDomainFieldError{Transaction: c.tt, Field: field, Value: value, Reason: reason}
	}
}

func (c *fieldChecker) npi(field, value string) {
	c.require(field, value)
	if c.err == nil && (len(value) != 10 || !isDigits(value)) {
		c.invalid(field, value, "must be 10 digits")
	}
}

func (c *fieldChecker) provider(p Provider) {
	if p.OrganizationName == "" {
		c.require("Provider.LastName", p.LastName)
	}
	c.npi("Provider.NPI", p.NPI)
}

func (c *fieldChecker) member(prefix string, m Member) {
	c.require(prefix+".MemberID", m.MemberID)
	c.require(prefix+".LastName", m.LastName)
	c.demographics(prefix, m.Demographics)
	if m.Address != nil {
		c.require(prefix+".Address.Line1", m.Address.Line1)
	}
}

func (c *fieldChecker) demographics(prefix string, d *Demographics) {
	if d == nil {
		return
	}
	if d.DateOfBirth.IsZero() {
		c.require(prefix+".Demographics.DateOfBirth", "")
	}
	switch d.Gender {
	case "", "M", "F", "U":
	default:
		c.invalid(prefix+".Demographics.Gender", d.Gender, "must be M, F or U")
	}
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseAmount(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func fmtIndex(list string, i int, field string) string {
	return fmt.Sprintf("%s[%d].%s", list, i, field)
}
