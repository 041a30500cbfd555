package x12

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// =========== 270 Tests ===========

func TestEncodeEligibilityInquiry_Segments(t *testing.T) {
	body, err := EncodeEligibilityInquiry(sampleEligibilityRequest(), testHeader())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "BHT HL NM1 HL NM1 HL TRN NM1 DMG DTP EQ"
	if got := segmentIDs(body); got != want {
		t.Errorf("unexpected segment order\nwant: %s\n got: %s", want, got)
	}

	text := renderBody(t, body)
	for _, s := range []string{
		"BHT*0022*13*0001*20260301*0930~",
		"HL*1**20*1~",
		"NM1*PR*2*ACME HEALTH*****PI*12345~",
		"HL*2*1*21*1~",
		"NM1*1P*2*GOOD CLINIC*****XX*1234567893~",
		"HL*3*2*22*0~",
		"TRN*1*TRACE0001*9SUBMITTER~",
		"NM1*IL*1*DOE*JOHN****MI*123456789A~",
		"DMG*D8*19800515*M~",
		"DTP*291*D8*20260301~",
		"EQ*30~",
	} {
		if !strings.Contains(text, s) {
			t.Errorf("expected %q in\n%s", s, text)
		}
	}
}

func TestEncodeEligibilityInquiry_DefaultServiceType(t *testing.T) {
	req := sampleEligibilityRequest()
	req.ServiceTypes = nil
	body, err := EncodeEligibilityInquiry(req, testHeader())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := body[len(body)-1]
	if last.ID != "EQ" || last.Element(1) != DefaultServiceType {
		t.Errorf("expected EQ*30, got %s*%s", last.ID, last.Element(1))
	}
}

func TestEncodeEligibilityInquiry_Dependent(t *testing.T) {
	req := sampleEligibilityRequest()
	req.Dependent = &Dependent{LastName: "DOE", FirstName: "JANE", Demographics: &Demographics{DateOfBirth: NewDate(2015, time.June, 1), Gender: "F"}}

	body, err := EncodeEligibilityInquiry(req, testHeader())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "BHT HL NM1 HL NM1 HL NM1 DMG HL TRN NM1 DMG DTP EQ"
	if got := segmentIDs(body); got != want {
		t.Errorf("unexpected segment order\nwant: %s\n got: %s", want, got)
	}
	text := renderBody(t, body)
	if !strings.Contains(text, "HL*3*2*22*1~") || !strings.Contains(text, "HL*4*3*23*0~") {
		t.Errorf("expected subscriber and dependent levels in\n%s", text)
	}
	if !strings.Contains(text, "NM1*03*1*DOE*JANE~") {
		t.Errorf("expected dependent name in\n%s", text)
	}
}

func TestEncodeEligibilityInquiry_GeneratedTrace(t *testing.T) {
	req := sampleEligibilityRequest()
	req.TraceNumber = ""

	a, err := EncodeEligibilityInquiry(req, testHeader())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := EncodeEligibilityInquiry(req, testHeader())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if renderBody(t, a) != renderBody(t, b) {
		t.Error("expected identical bodies for identical headers")
	}

	h := testHeader()
	h.Control.Transaction = "0002"
	c, err := EncodeEligibilityInquiry(req, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	traceA, traceC := a[6].Element(2), c[6].Element(2)
	if traceA == "" || traceA == traceC {
		t.Errorf("expected distinct generated traces, got %q and %q", traceA, traceC)
	}
}

func TestEligibilityRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *EligibilityRequest)
		field  string
	}{
		{"payer name", func(r *EligibilityRequest) { r.Payer.Name = "" }, "Payer.Name"},
		{"payer id", func(r *EligibilityRequest) { r.Payer.ID = "" }, "Payer.ID"},
		{"member id", func(r *EligibilityRequest) { r.Subscriber.MemberID = "" }, "Subscriber.MemberID"},
		{"last name", func(r *EligibilityRequest) { r.Subscriber.LastName = " " }, "Subscriber.LastName"},
		{"npi", func(r *EligibilityRequest) { r.Provider.NPI = "" }, "Provider.NPI"},
		{"provider name", func(r *EligibilityRequest) { r.Provider.OrganizationName = "" }, "Provider.LastName"},
		{"dependent name", func(r *EligibilityRequest) { r.Dependent = &Dependent{} }, "Dependent.LastName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sampleEligibilityRequest()
			tt.mutate(&req)
			_, err := EncodeEligibilityInquiry(req, testHeader())
			var missing *MissingDomainFieldError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingDomainFieldError, got %v", err)
			}
			if missing.Field != tt.field || missing.Transaction != TypeEligibilityInquiry {
				t.Errorf("expected field %s, got %s (%s)", tt.field, missing.Field, missing.Transaction)
			}
		})
	}
}

func TestEligibilityRequest_InvalidValues(t *testing.T) {
	req := sampleEligibilityRequest()
	req.Provider.NPI = "12345"
	_, err := EncodeEligibilityInquiry(req, testHeader())
	var invalid *InvalidDomainFieldError
	if !errors.As(err, &invalid) || invalid.Field != "Provider.NPI" {
		t.Fatalf("expected invalid NPI, got %v", err)
	}

	req = sampleEligibilityRequest()
	req.Subscriber.Demographics.Gender = "X"
	_, err = EncodeEligibilityInquiry(req, testHeader())
	if !errors.As(err, &invalid) || invalid.Field != "Subscriber.Demographics.Gender" {
		t.Fatalf("expected invalid gender, got %v", err)
	}
}

func TestEligibilityInquiry_RoundTrip(t *testing.T) {
	req := sampleEligibilityRequest()
	req.ServiceTypes = []string{"30", "1"}
	req.Subscriber.GroupNumber = "GRP100"

	tx, err := testCodec(t).Encode(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	r, err := Parse(tx.Bytes(), DefaultLimits())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !r.Valid() || len(r.Warnings()) != 0 {
		t.Fatalf("expected clean parse, got errors %v warnings %v", r.Errors(), r.Warnings())
	}
	if r.Control != tx.Control {
		t.Errorf("expected control %+v, got %+v", tx.Control, r.Control)
	}

	f := r.Fields
	if f.Payer != req.Payer {
		t.Errorf("payer: want %+v, got %+v", req.Payer, f.Payer)
	}
	if f.Provider != req.Provider {
		t.Errorf("provider: want %+v, got %+v", req.Provider, f.Provider)
	}
	if f.Subscriber.MemberID != req.Subscriber.MemberID || f.Subscriber.GroupNumber != "GRP100" {
		t.Errorf("subscriber: want %+v, got %+v", req.Subscriber, f.Subscriber)
	}
	if !f.Subscriber.Demographics.DateOfBirth.Equal(req.Subscriber.Demographics.DateOfBirth.Time) {
		t.Errorf("date of birth: want %v, got %v", req.Subscriber.Demographics.DateOfBirth, f.Subscriber.Demographics.DateOfBirth)
	}
	if strings.Join(f.ServiceTypes, ",") != "30,1" {
		t.Errorf("service types: got %v", f.ServiceTypes)
	}
	if len(f.TraceNumbers) != 1 || f.TraceNumbers[0] != "TRACE0001" {
		t.Errorf("trace numbers: got %v", f.TraceNumbers)
	}
}

// =========== 271 Tests ===========

func sampleEligibilityResponse() EligibilityResponse {
	return EligibilityResponse{
		Payer:       Party{Name: "ACME HEALTH", ID: "12345"},
		Provider:    sampleProvider(),
		Subscriber:  sampleSubscriber(),
		TraceNumber: "TRACE0001",
		IsEligible:  true,
	}
}

func TestEncodeEligibilityResponse_Defaults(t *testing.T) {
	body, err := EncodeEligibilityResponse(sampleEligibilityResponse(), testHeader())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := renderBody(t, body)
	for _, s := range []string{
		"BHT*0022*11*0001*20260301*0930~",
		"TRN*2*TRACE0001*9SUBMITTER~",
		"EB*1**30~",
		"MSG*COVERAGE IS ACTIVE~",
	} {
		if !strings.Contains(text, s) {
			t.Errorf("expected %q in\n%s", s, text)
		}
	}
}

func TestEncodeEligibilityResponse_Inactive(t *testing.T) {
	resp := sampleEligibilityResponse()
	resp.IsEligible = false
	resp.Rejection = &Rejection{ReasonCode: "72", FollowUpCode: "C"}

	body, err := EncodeEligibilityResponse(resp, testHeader())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := renderBody(t, body)
	for _, s := range []string{"AAA*N**72*C~", "EB*6**30~", "MSG*COVERAGE NOT FOUND~"} {
		if !strings.Contains(text, s) {
			t.Errorf("expected %q in\n%s", s, text)
		}
	}
}

func TestEncodeEligibilityResponse_RequiresTrace(t *testing.T) {
	resp := sampleEligibilityResponse()
	resp.TraceNumber = ""
	_, err := EncodeEligibilityResponse(resp, testHeader())
	var missing *MissingDomainFieldError
	if !errors.As(err, &missing) || missing.Field != "TraceNumber" {
		t.Fatalf("expected missing TraceNumber, got %v", err)
	}
}

func TestEligibilityResponse_RoundTrip(t *testing.T) {
	resp := sampleEligibilityResponse()
	resp.Subscriber.Address = &Address{Line1: "1 MAIN ST", City: "SPRINGFIELD", State: "IL", PostalCode: "62701"}
	resp.Benefits = []Benefit{
		{InfoCode: "1", CoverageLevel: "IND", ServiceType: "30", InsuranceType: "HM", PlanDescription: "GOLD PLAN"},
		{InfoCode: "B", CoverageLevel: "IND", ServiceType: "98", TimePeriod: "27", Amount: amount(25), InPlanNetwork: "Y"},
		{InfoCode: "A", ServiceType: "30", Percent: amount(0.2), InPlanNetwork: "N"},
	}
	resp.Message = "PLAN RENEWS JANUARY 1"

	tx, err := testCodec(t).Encode(resp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	r, err := ParseAs(tx.Bytes(), TypeEligibilityResponse, DefaultLimits())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !r.Valid() || len(r.Warnings()) != 0 {
		t.Fatalf("expected clean parse, got errors %v warnings %v", r.Errors(), r.Warnings())
	}

	f := r.Fields
	if f.Eligible == nil || !*f.Eligible {
		t.Errorf("expected eligible, got %v", f.Eligible)
	}
	if len(f.Benefits) != 3 {
		t.Fatalf("expected 3 benefits, got %d", len(f.Benefits))
	}
	copay := f.Benefits[1]
	if copay.Amount == nil || *copay.Amount != 25 || copay.InPlanNetwork != "Y" || copay.TimePeriod != "27" {
		t.Errorf("unexpected co-payment %+v", copay)
	}
	if f.Benefits[2].Percent == nil || *f.Benefits[2].Percent != 0.2 {
		t.Errorf("unexpected co-insurance %+v", f.Benefits[2])
	}
	if f.Benefits[0].PlanDescription != "GOLD PLAN" {
		t.Errorf("unexpected plan description %q", f.Benefits[0].PlanDescription)
	}
	if f.Subscriber.Address == nil || *f.Subscriber.Address != *resp.Subscriber.Address {
		t.Errorf("address: want %+v, got %+v", resp.Subscriber.Address, f.Subscriber.Address)
	}
	if len(f.Messages) != 1 || f.Messages[0] != "PLAN RENEWS JANUARY 1" {
		t.Errorf("unexpected messages %v", f.Messages)
	}
	if strings.Join(f.ServiceTypes, ",") != "30,98" {
		t.Errorf("unexpected service types %v", f.ServiceTypes)
	}
}

func TestEligibilityResponse_RejectionRoundTrip(t *testing.T) {
	resp := sampleEligibilityResponse()
	resp.IsEligible = false
	resp.Dependent = &Dependent{LastName: "DOE", FirstName: "JANE"}
	resp.Rejection = &Rejection{ReasonCode: "75", FollowUpCode: "C"}

	tx, err := testCodec(t).Encode(resp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	r, err := Parse(tx.Bytes(), DefaultLimits())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !r.Valid() {
		t.Fatalf("expected valid parse, got %v", r.Errors())
	}
	f := r.Fields
	if f.Eligible == nil || *f.Eligible {
		t.Errorf("expected ineligible, got %v", f.Eligible)
	}
	if len(f.Rejections) != 1 || f.Rejections[0] != *resp.Rejection {
		t.Errorf("unexpected rejections %+v", f.Rejections)
	}
	if f.Dependent == nil || f.Dependent.FirstName != "JANE" {
		t.Errorf("unexpected dependent %+v", f.Dependent)
	}
	if len(r.Hierarchy) != 4 || r.Hierarchy[3].LevelCode != "23" {
		t.Errorf("expected dependent level, got %+v", r.Hierarchy)
	}
}
