package x12

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

const (
	interchangeVersion = "00501"
	agencyCode         = "X"
)

// Envelope carries the trading-partner identifiers and delimiters stamped
// into the ISA and GS headers.
type Envelope struct {
	SenderQualifier     string     `json:"senderQualifier"`
	SenderID            string     `json:"senderId"`
	ReceiverQualifier   string     `json:"receiverQualifier"`
	ReceiverID          string     `json:"receiverId"`
	ApplicationSender   string     `json:"applicationSender"`
	ApplicationReceiver string     `json:"applicationReceiver"`
	UsageIndicator      string     `json:"usageIndicator"`
	AckRequested        bool       `json:"ackRequested"`
	Delimiters          Delimiters `json:"delimiters"`
}

// DefaultEnvelope returns a test-usage envelope with mutually defined ("ZZ")
// qualifiers and the default delimiters. Sender and receiver ids are left for
// the caller.
func DefaultEnvelope() Envelope {
	return Envelope{
		SenderQualifier:   "ZZ",
		ReceiverQualifier: "ZZ",
		UsageIndicator:    "T",
		Delimiters:        DefaultDelimiters(),
	}
}

// Validate checks the envelope identifiers against their ISA widths.
func (e Envelope) Validate() error {
	if e.SenderID == "" {
		return fmt.Errorf("x12: envelope sender id is required")
	}
	if e.ReceiverID == "" {
		return fmt.Errorf("x12: envelope receiver id is required")
	}
	if len(e.SenderID) > 15 || len(e.ReceiverID) > 15 {
		return fmt.Errorf("x12: envelope sender and receiver ids must be at most 15 characters")
	}
	if len(e.SenderQualifier) != 2 || len(e.ReceiverQualifier) != 2 {
		return fmt.Errorf("x12: envelope id qualifiers must be 2 characters")
	}
	if e.UsageIndicator != "T" && e.UsageIndicator != "P" {
		return fmt.Errorf("x12: usage indicator must be \"T\" or \"P\", got %q", e.UsageIndicator)
	}
	return e.Delimiters.Validate()
}

func (e Envelope) applicationSender() string {
	if e.ApplicationSender != "" {
		return e.ApplicationSender
	}
	return e.SenderID
}

func (e Envelope) applicationReceiver() string {
	if e.ApplicationReceiver != "" {
		return e.ApplicationReceiver
	}
	return e.ReceiverID
}

// Transaction is one fully enveloped transaction set. It is a value: once
// built or parsed it is not modified.
type Transaction struct {
	Type       TransactionType `json:"type"`
	Control    ControlNumbers  `json:"control"`
	Delimiters Delimiters      `json:"delimiters"`
	Segments   []Segment       `json:"segments"`
	text       string
}

// String returns the wire text.
func (t Transaction) String() string {
	return t.text
}

// Bytes returns the wire text as bytes.
func (t Transaction) Bytes() []byte {
	return []byte(t.text)
}

// SegmentCount returns the number of segments from ST through SE inclusive.
func (t Transaction) SegmentCount() int {
	// Everything except ISA, GS, GE and IEA.
	return len(t.Segments) - 4
}

// Wrap surrounds a transaction body (the segments between ST and SE) with
// ISA, GS, ST and SE, GE, IEA. The same control numbers are written into each
// header and its trailer, and SE-01 counts ST through SE inclusive. The
// assembled envelope is re-checked before rendering; a mismatch there is
// reported as ErrEnvelopeInvariant.
func Wrap(tt TransactionType, body []Segment, control ControlNumbers, env Envelope, at time.Time) (Transaction, error) {
	schema, err := SchemaFor(tt)
	if err != nil {
		return Transaction{}, err
	}
	if err := control.Validate(); err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrEnvelopeInvariant, err)
	}
	if err := env.Validate(); err != nil {
		return Transaction{}, err
	}

	ack := "0"
	if env.AckRequested {
		ack = "1"
	}

	isa := NewSegment("ISA",
		"00", "", "00", "",
		env.SenderQualifier, env.SenderID,
		env.ReceiverQualifier, env.ReceiverID,
		at.Format("060102"), at.Format("1504"),
		string(env.Delimiters.Repetition), interchangeVersion,
		control.Interchange, ack, env.UsageIndicator,
		string(env.Delimiters.Component),
	)
	gs := NewSegment("GS",
		schema.FunctionalID, env.applicationSender(), env.applicationReceiver(),
		at.Format("20060102"), at.Format("1504"),
		control.Group, agencyCode, schema.Version,
	)
	st := NewSegment("ST", string(tt), control.Transaction, schema.Version)

	count := len(body) + 2
	se := NewSegment("SE", strconv.Itoa(count), control.Transaction)
	ge := NewSegment("GE", "1", control.Group)
	iea := NewSegment("IEA", "1", control.Interchange)

	segments := make([]Segment, 0, len(body)+6)
	segments = append(segments, isa, gs, st)
	segments = append(segments, body...)
	segments = append(segments, se, ge, iea)

	if err := verifyEnvelope(segments); err != nil {
		return Transaction{}, err
	}

	text, err := Render(segments, env.Delimiters)
	if err != nil {
		return Transaction{}, err
	}

	return Transaction{
		Type:       tt,
		Control:    control,
		Delimiters: env.Delimiters,
		Segments:   segments,
		text:       text,
	}, nil
}

// verifyEnvelope re-derives trailer values from a freshly assembled segment
// list and compares them with the headers.
func verifyEnvelope(segments []Segment) error {
	n := len(segments)
	if n < 6 {
		return fmt.Errorf("%w: %d segments cannot form an envelope", ErrEnvelopeInvariant, n)
	}
	isa, gs, st := segments[0], segments[1], segments[2]
	se, ge, iea := segments[n-3], segments[n-2], segments[n-1]

	ids := []string{isa.ID, gs.ID, st.ID, se.ID, ge.ID, iea.ID}
	for i, want := range []string{"ISA", "GS", "ST", "SE", "GE", "IEA"} {
		if ids[i] != want {
			return fmt.Errorf("%w: expected %s, found %s", ErrEnvelopeInvariant, want, ids[i])
		}
	}
	if isa.Element(13) != iea.Element(2) {
		return fmt.Errorf("%w: ISA-13 %q != IEA-02 %q", ErrEnvelopeInvariant, isa.Element(13), iea.Element(2))
	}
	if gs.Element(6) != ge.Element(2) {
		return fmt.Errorf("%w: GS-06 %q != GE-02 %q", ErrEnvelopeInvariant, gs.Element(6), ge.Element(2))
	}
	if st.Element(2) != se.Element(2) {
		return fmt.Errorf("%w: ST-02 %q != SE-02 %q", ErrEnvelopeInvariant, st.Element(2), se.Element(2))
	}
	if want := strconv.Itoa(n - 4); se.Element(1) != want {
		return fmt.Errorf("%w: SE-01 %q != %s", ErrEnvelopeInvariant, se.Element(1), want)
	}
	return nil
}

// Located is a segment together with its 1-based position in the document.
type Located struct {
	Position int     `json:"position"`
	Segment  Segment `json:"segment"`
}

// Unwrapped is the result of separating an interchange into its envelope and
// the payload of its first transaction set. Declared counts and control
// numbers are surfaced as received so the validator can reconcile them.
type Unwrapped struct {
	Delimiters         Delimiters `json:"delimiters"`
	DelimitersDeclared bool       `json:"delimitersDeclared"`
	ISALength          int        `json:"isaLength"`

	// Segments is every segment in document order, envelope included.
	Segments []Segment `json:"segments"`
	// Payload is the segments strictly between the first ST and its SE.
	Payload []Segment `json:"payload"`
	// PayloadOffset is the 0-based index of Payload[0] within Segments.
	PayloadOffset int `json:"payloadOffset"`

	// Envelope holds the first occurrence of each envelope segment.
	Envelope map[string]Located `json:"envelope"`

	ActualSegmentCount   int    `json:"actualSegmentCount"`
	TransactionSetCount  int    `json:"transactionSetCount"`
	FunctionalGroupCount int    `json:"functionalGroupCount"`
	DeclaredSegmentCount string `json:"declaredSegmentCount"`
	DeclaredSetCount     string `json:"declaredSetCount"`
	DeclaredGroupCount   string `json:"declaredGroupCount"`
}

// Header returns the located envelope segment with the given id.
func (u *Unwrapped) Header(id string) (Located, bool) {
	l, ok := u.Envelope[id]
	return l, ok
}

// PayloadPosition returns the 1-based document position of Payload[i].
func (u *Unwrapped) PayloadPosition(i int) int {
	return u.PayloadOffset + i + 1
}

// Control returns the control numbers as declared by the ISA, GS and ST headers.
func (u *Unwrapped) Control() ControlNumbers {
	var c ControlNumbers
	if l, ok := u.Envelope["ISA"]; ok {
		c.Interchange = l.Segment.Element(13)
	}
	if l, ok := u.Envelope["GS"]; ok {
		c.Group = l.Segment.Element(6)
	}
	if l, ok := u.Envelope["ST"]; ok {
		c.Transaction = l.Segment.Element(2)
	}
	return c
}

// Unwrap detects the delimiters of raw interchange text, tokenizes it and
// locates its envelope. Only limit violations are returned as errors; every
// structural problem is left in the result for the validator to report.
func Unwrap(raw []byte, limits Limits) (*Unwrapped, error) {
	if limits.MaxInputBytes > 0 && len(raw) > limits.MaxInputBytes {
		return nil, &InputTooLargeError{Limit: "input bytes", Max: limits.MaxInputBytes, Actual: len(raw)}
	}

	d, declared := DetectDelimiters(raw)
	segments, err := Tokenize(raw, d, limits)
	if err != nil {
		return nil, err
	}

	u := &Unwrapped{
		Delimiters:         d,
		DelimitersDeclared: declared,
		Segments:           segments,
		Envelope:           make(map[string]Located, len(envelopeSegments)),
		PayloadOffset:      -1,
	}
	if declared {
		trimmed := bytes.TrimLeft(raw, " \t\r\n")
		if idx := bytes.IndexByte(trimmed, d.Segment); idx >= 0 {
			u.ISALength = idx + 1
		}
	}

	stIdx, seIdx := -1, -1
	for i, seg := range segments {
		if !isEnvelopeSegment(seg.ID) {
			continue
		}
		switch seg.ID {
		case "ST":
			u.TransactionSetCount++
		case "GS":
			u.FunctionalGroupCount++
		}
		if _, seen := u.Envelope[seg.ID]; seen {
			continue
		}
		u.Envelope[seg.ID] = Located{Position: i + 1, Segment: seg}
		switch seg.ID {
		case "ST":
			stIdx = i
		case "SE":
			seIdx = i
		}
	}

	if l, ok := u.Envelope["SE"]; ok {
		u.DeclaredSegmentCount = l.Segment.Element(1)
	}
	if l, ok := u.Envelope["GE"]; ok {
		u.DeclaredSetCount = l.Segment.Element(1)
	}
	if l, ok := u.Envelope["IEA"]; ok {
		u.DeclaredGroupCount = l.Segment.Element(1)
	}

	start, end := payloadBounds(segments, stIdx, seIdx)
	if start <= end {
		u.Payload = segments[start:end]
		u.PayloadOffset = start
	}
	if stIdx >= 0 && seIdx > stIdx {
		u.ActualSegmentCount = seIdx - stIdx + 1
	}

	return u, nil
}

func isEnvelopeSegment(id string) bool {
	for _, e := range envelopeSegments {
		if id == e {
			return true
		}
	}
	return false
}

// payloadBounds returns the half-open range of payload segments. Missing
// ST or SE markers fall back to the nearest envelope boundary so that a
// damaged transaction still yields its body.
func payloadBounds(segments []Segment, stIdx, seIdx int) (int, int) {
	start := stIdx + 1
	if stIdx < 0 {
		start = 0
		for i, seg := range segments {
			if seg.ID == "ISA" || seg.ID == "GS" {
				start = i + 1
			}
			if seg.ID != "ISA" && seg.ID != "GS" {
				break
			}
		}
	}
	end := seIdx
	if seIdx < start {
		end = len(segments)
		for end > start {
			id := segments[end-1].ID
			if id != "SE" && id != "GE" && id != "IEA" {
				break
			}
			end--
		}
	}
	return start, end
}
