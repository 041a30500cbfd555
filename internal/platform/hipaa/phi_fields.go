package hipaa

import "strings"

// PHIElementConfig maps an X12 segment identifier to the element positions
// that carry Protected Health Information (PHI) per the HIPAA Safe Harbor
// de-identification standard (45 CFR 164.514(b)(2)).
type PHIElementConfig struct {
	// SegmentID is the X12 segment identifier (e.g. "NM1").
	SegmentID string
	// Elements lists the 1-based element positions that contain PHI.
	Elements []int
	// Date marks elements holding dates, which keep only the year when
	// masked.
	Date bool
	// PersonOnly limits the config to segments describing a person. For NM1
	// that means NM1-02 is "1"; organization names and ids are not PHI.
	PersonOnly bool
}

// DefaultPHIElements returns the PHI element configuration for the segments
// of the eligibility, patient information and authorization transactions
// that carry direct patient identifiers:
//
//   - Names and member identifiers (NM1-03, NM1-04, NM1-05, NM1-09)
//   - Dates of birth (DMG-02)
//   - Geographic data smaller than state (N3-01, N3-02, N4-03)
//   - Account identifiers such as group and policy numbers (REF-02)
func DefaultPHIElements() []PHIElementConfig {
	return []PHIElementConfig{
		{
			SegmentID:  "NM1",
			Elements:   []int{3, 4, 5, 9}, // last, first, middle name, member id
			PersonOnly: true,
		},
		{
			SegmentID: "DMG",
			Elements:  []int{2}, // date of birth
			Date:      true,
		},
		{
			SegmentID: "N3",
			Elements:  []int{1, 2}, // street address lines
		},
		{
			SegmentID: "N4",
			Elements:  []int{3}, // postal code
		},
		{
			SegmentID: "REF",
			Elements:  []int{2}, // group, policy and account numbers
		},
	}
}

// PHIElementsFor returns the PHI configuration of a segment identifier.
func PHIElementsFor(segmentID string) (PHIElementConfig, bool) {
	for _, c := range DefaultPHIElements() {
		if c.SegmentID == segmentID {
			return c, true
		}
	}
	return PHIElementConfig{}, false
}

// MaskIdentifier replaces all but the last four characters of value with
// '*'. Values of four characters or fewer are masked entirely.
func MaskIdentifier(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

// MaskDate masks every digit after a leading four-digit year, so
// "19800515" becomes "1980****" and "1980-05-15" becomes "1980-**-**".
// Values without a leading year are masked entirely.
func MaskDate(value string) string {
	b := []byte(value)
	keep := 4
	if len(b) <= keep || !isDigits(b[:keep]) {
		keep = 0
	}
	for i := keep; i < len(b); i++ {
		if b[i] != '-' && b[i] != '/' {
			b[i] = '*'
		}
	}
	return string(b)
}

func isDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
