package x12

import (
	"strings"
)

const (
	allergyPrefix    = "ALLERGY "
	medicationPrefix = "MEDICATION "

	// maxHICodes is the number of composite code elements one HI segment holds.
	maxHICodes = 12
)

// Insurance is one coverage block of a patient information transaction.
type Insurance struct {
	Payer        Party  `json:"payer"`
	PolicyNumber string `json:"policyNumber"`
	GroupNumber  string `json:"groupNumber,omitempty"`
}

// PatientInformation is the domain form of a 275 patient information
// transaction: a flat patient record with no HL tree.
type PatientInformation struct {
	Submitter Party       `json:"submitter"`
	Receiver  Party       `json:"receiver"`
	Patient   Member      `json:"patient"`
	Insurance []Insurance `json:"insurance,omitempty"`
	// Conditions are ICD-10-CM codes. Dots are removed on the wire.
	Conditions  []string `json:"conditions,omitempty"`
	Allergies   []string `json:"allergies,omitempty"`
	Medications []string `json:"medications,omitempty"`
	TraceNumber string   `json:"traceNumber,omitempty"`
	ReferenceID string   `json:"referenceId,omitempty"`
}

func (r PatientInformation) TransactionType() TransactionType { return TypePatientInformation }

// Validate reports the first required field that is missing or malformed.
func (r PatientInformation) Validate() error {
	c := fieldChecker{tt: TypePatientInformation}
	c.require("Submitter.Name", r.Submitter.Name)
	c.require("Submitter.ID", r.Submitter.ID)
	c.require("Receiver.Name", r.Receiver.Name)
	c.require("Receiver.ID", r.Receiver.ID)
	c.member("Patient", r.Patient)
	for i, ins := range r.Insurance {
		c.require(fmtIndex("Insurance", i, "Payer.Name"), ins.Payer.Name)
		c.require(fmtIndex("Insurance", i, "PolicyNumber"), ins.PolicyNumber)
	}
	for i, code := range r.Conditions {
		c.require(fmtIndex("Conditions", i, "Code"), code)
	}
	return c.err
}

func (r PatientInformation) encode(h Header) ([]Segment, error) {
	return EncodePatientInformation(r, h)
}

// EncodePatientInformation maps a 275 request onto its transaction body:
//
//	BGN  NM1*41  NM1*40  LX  TRN  NM1*QC  [DMG]  [N3 N4]
//	(NM1*PR REF*IG [REF*6P])...  HI...  MSG...
func EncodePatientInformation(r PatientInformation, h Header) ([]Segment, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	trace := r.TraceNumber
	if trace == "" {
		trace = derivedID(h, "trace")
	}
	reference := r.ReferenceID
	if reference == "" {
		reference = derivedID(h, "reference")
	}

	var l segmentList
	l.add("BGN", "11", reference, h.CreatedAt.Format(dateFormatD8), h.CreatedAt.Format("1504"))
	l.organization("41", r.Submitter, "46")
	l.organization("40", r.Receiver, "46")
	l.add("LX", "1")
	l.trace("1", trace, h.OriginatorID)

	l.member("QC", r.Patient)
	l.demographics(r.Patient.Demographics)
	l.address(r.Patient.Address)

	for _, ins := range r.Insurance {
		l.organization("PR", ins.Payer, "PI")
		l.add("REF", "IG", ins.PolicyNumber)
		if ins.GroupNumber != "" {
			l.add("REF", "6P", ins.GroupNumber)
		}
	}

	for _, seg := range diagnosisSegments(r.Conditions) {
		l.addSegment(seg)
	}
	for _, a := range r.Allergies {
		l.add("MSG", allergyPrefix+a)
	}
	for _, m := range r.Medications {
		l.add("MSG", medicationPrefix+m)
	}

	return l.segments, nil
}

// diagnosisSegments packs ICD-10-CM codes into HI segments, twelve per
// segment. The first code is qualified ABK (principal), the rest ABF.
func diagnosisSegments(codes []string) []Segment {
	var segments []Segment
	for start := 0; start < len(codes); start += maxHICodes {
		end := start + maxHICodes
		if end > len(codes) {
			end = len(codes)
		}
		seg := Segment{ID: "HI"}
		for i, code := range codes[start:end] {
			qualifier := "ABF"
			if start+i == 0 {
				qualifier = "ABK"
			}
			seg.Elements = append(seg.Elements, Composite(qualifier, normalizeDiagnosis(code)))
		}
		segments = append(segments, seg)
	}
	return segments
}

// normalizeDiagnosis strips the dot X12 does not carry in ICD codes.
func normalizeDiagnosis(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), ".", ""))
}
