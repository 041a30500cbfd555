package x12

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func wrapEligibility(t *testing.T) Transaction {
	t.Helper()
	body, err := EncodeEligibilityInquiry(sampleEligibilityRequest(), testHeader())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	tx, err := Wrap(TypeEligibilityInquiry, body, testHeader().Control, testEnvelope(), testTime)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	return tx
}

func TestWrap_EnvelopeIntegrity(t *testing.T) {
	tx := wrapEligibility(t)
	segs := tx.Segments
	n := len(segs)

	if segmentIDs(segs[:3]) != "ISA GS ST" || segmentIDs(segs[n-3:]) != "SE GE IEA" {
		t.Fatalf("unexpected envelope order: %s", segmentIDs(segs))
	}
	isa, gs, st := segs[0], segs[1], segs[2]
	se, ge, iea := segs[n-3], segs[n-2], segs[n-1]

	if isa.Element(13) != iea.Element(2) {
		t.Errorf("ISA-13 %q != IEA-02 %q", isa.Element(13), iea.Element(2))
	}
	if gs.Element(6) != ge.Element(2) {
		t.Errorf("GS-06 %q != GE-02 %q", gs.Element(6), ge.Element(2))
	}
	if st.Element(2) != se.Element(2) {
		t.Errorf("ST-02 %q != SE-02 %q", st.Element(2), se.Element(2))
	}
	if se.Element(1) != strconv.Itoa(tx.SegmentCount()) {
		t.Errorf("SE-01 %q != segment count %d", se.Element(1), tx.SegmentCount())
	}
	if ge.Element(1) != "1" || iea.Element(1) != "1" {
		t.Errorf("unexpected GE-01/IEA-01 %q/%q", ge.Element(1), iea.Element(1))
	}
	if gs.Element(1) != "HS" || gs.Element(8) != "005010X279A1" {
		t.Errorf("unexpected GS functional id/version %q/%q", gs.Element(1), gs.Element(8))
	}
	if st.Element(1) != "270" || st.Element(3) != "005010X279A1" {
		t.Errorf("unexpected ST %q/%q", st.Element(1), st.Element(3))
	}
}

func TestWrap_ISAFormat(t *testing.T) {
	tx := wrapEligibility(t)
	text := tx.String()

	end := strings.IndexByte(text, '~')
	if end+1 != isaLength {
		t.Fatalf("expected ISA of %d characters, got %d", isaLength, end+1)
	}
	isa := text[:end+1]
	if !strings.HasPrefix(isa, "ISA*00*          *00*          *ZZ*SUBMITTER01    *ZZ*PAYER01        *260301*0930*^*00501*000000001*0*T*:~") {
		t.Errorf("unexpected ISA %q", isa)
	}
	if !strings.HasPrefix(sample270, isa) {
		t.Errorf("wrapped ISA does not match the sample header")
	}
}

func TestWrap_AckAndUsage(t *testing.T) {
	body, err := EncodeEligibilityInquiry(sampleEligibilityRequest(), testHeader())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env := testEnvelope()
	env.AckRequested = true
	env.UsageIndicator = "P"
	env.ApplicationSender = "APPSEND"

	tx, err := Wrap(TypeEligibilityInquiry, body, testHeader().Control, env, testTime)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	isa, gs := tx.Segments[0], tx.Segments[1]
	if isa.Element(14) != "1" || isa.Element(15) != "P" {
		t.Errorf("unexpected ISA-14/15 %q/%q", isa.Element(14), isa.Element(15))
	}
	if gs.Element(2) != "APPSEND" || gs.Element(3) != "PAYER01" {
		t.Errorf("unexpected GS-02/03 %q/%q", gs.Element(2), gs.Element(3))
	}
}

func TestWrap_Errors(t *testing.T) {
	body := []Segment{NewSegment("BHT", "0022", "13")}

	_, err := Wrap("837", body, testHeader().Control, testEnvelope(), testTime)
	var unsupported *UnsupportedTransactionTypeError
	if !errors.As(err, &unsupported) {
		t.Errorf("expected UnsupportedTransactionTypeError, got %v", err)
	}

	_, err = Wrap(TypeEligibilityInquiry, body, ControlNumbers{Interchange: "1"}, testEnvelope(), testTime)
	if !errors.Is(err, ErrEnvelopeInvariant) {
		t.Errorf("expected ErrEnvelopeInvariant, got %v", err)
	}

	env := testEnvelope()
	env.SenderID = ""
	if _, err := Wrap(TypeEligibilityInquiry, body, testHeader().Control, env, testTime); err == nil {
		t.Error("expected error for missing sender id")
	}

	env = testEnvelope()
	env.ReceiverID = "THIS-ID-IS-TOO-LONG"
	if _, err := Wrap(TypeEligibilityInquiry, body, testHeader().Control, env, testTime); err == nil {
		t.Error("expected error for long receiver id")
	}
}

func TestWrap_RejectsCollidingBody(t *testing.T) {
	body := []Segment{NewSegment("BHT", "0022", "13", "REF*1")}
	_, err := Wrap(TypeEligibilityInquiry, body, testHeader().Control, testEnvelope(), testTime)
	var collision *DelimiterCollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected DelimiterCollisionError, got %v", err)
	}
}

func TestVerifyEnvelope_DetectsTampering(t *testing.T) {
	tx := wrapEligibility(t)
	segs := append([]Segment(nil), tx.Segments...)
	n := len(segs)

	segs[n-3] = NewSegment("SE", "99", segs[n-3].Element(2))
	if err := verifyEnvelope(segs); !errors.Is(err, ErrEnvelopeInvariant) {
		t.Errorf("expected ErrEnvelopeInvariant for bad SE-01, got %v", err)
	}

	segs = append([]Segment(nil), tx.Segments...)
	segs[n-1] = NewSegment("IEA", "1", "000000002")
	if err := verifyEnvelope(segs); !errors.Is(err, ErrEnvelopeInvariant) {
		t.Errorf("expected ErrEnvelopeInvariant for bad IEA-02, got %v", err)
	}

	if err := verifyEnvelope(segs[:3]); !errors.Is(err, ErrEnvelopeInvariant) {
		t.Errorf("expected ErrEnvelopeInvariant for short list, got %v", err)
	}
}

func TestUnwrap_Sample(t *testing.T) {
	u, err := Unwrap([]byte(sample270), DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.DelimitersDeclared || u.ISALength != isaLength {
		t.Errorf("unexpected delimiter state declared=%v length=%d", u.DelimitersDeclared, u.ISALength)
	}
	if len(u.Payload) != 11 || u.Payload[0].ID != "BHT" || u.Payload[10].ID != "EQ" {
		t.Errorf("unexpected payload %s", segmentIDs(u.Payload))
	}
	if u.PayloadOffset != 3 {
		t.Errorf("expected payload offset 3, got %d", u.PayloadOffset)
	}
	if u.ActualSegmentCount != 13 || u.DeclaredSegmentCount != "13" {
		t.Errorf("unexpected segment counts %d/%s", u.ActualSegmentCount, u.DeclaredSegmentCount)
	}
	if u.TransactionSetCount != 1 || u.FunctionalGroupCount != 1 {
		t.Errorf("unexpected set/group counts %d/%d", u.TransactionSetCount, u.FunctionalGroupCount)
	}
	st, ok := u.Header("ST")
	if !ok || st.Position != 3 {
		t.Errorf("expected ST at position 3, got %+v", st)
	}
}

func TestUnwrap_MissingTrailer(t *testing.T) {
	raw := strings.Replace(sample270, "SE*13*0001~", "", 1)
	u, err := Unwrap([]byte(raw), DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := u.Header("SE"); ok {
		t.Fatal("SE should be absent")
	}
	if len(u.Payload) != 11 || u.Payload[10].ID != "EQ" {
		t.Errorf("expected payload to stop before GE, got %s", segmentIDs(u.Payload))
	}
}

func TestEnvelope_Validate(t *testing.T) {
	if err := testEnvelope().Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := DefaultEnvelope().Validate(); err == nil {
		t.Error("default envelope has no ids and should not validate")
	}
	env := testEnvelope()
	env.UsageIndicator = "X"
	if err := env.Validate(); err == nil {
		t.Error("expected error for usage indicator X")
	}
	env = testEnvelope()
	env.SenderQualifier = "Z"
	if err := env.Validate(); err == nil {
		t.Error("expected error for one-character qualifier")
	}
}
