package x12

import (
	"errors"
	"fmt"
)

// ErrEnvelopeInvariant is returned by Wrap when a generated envelope does not
// reconcile with itself. It indicates a defect in this package, not bad input.
var ErrEnvelopeInvariant = errors.New("x12: envelope invariant violated")

// MissingDomainFieldError reports a domain request that lacks a field the
// transaction type requires. Nothing is emitted.
type MissingDomainFieldError struct {
	Transaction TransactionType
	Field       string
}

func (e *MissingDomainFieldError) Error() string {
	return fmt.Sprintf("x12: %s request is missing required field %s", e.Transaction, e.Field)
}

// InvalidDomainFieldError reports a domain field whose value cannot be
// encoded, such as an NPI that is not ten digits.
type InvalidDomainFieldError struct {
	Transaction TransactionType
	Field       string
	Value       string
	Reason      string
}

func (e *InvalidDomainFieldError) Error() string {
	return fmt.Sprintf("x12: %s request field %s=%q is invalid: %s", e.Transaction, e.Field, e.Value, e.Reason)
}

// DelimiterCollisionError reports literal data that contains a reserved
// delimiter character.
type DelimiterCollisionError struct {
	SegmentID string
	Position  int
	Value     string
	Char      byte
}

func (e *DelimiterCollisionError) Error() string {
	return fmt.Sprintf("x12: %s-%02d value %q contains reserved delimiter %q", e.SegmentID, e.Position, e.Value, e.Char)
}

// InvalidCharacterError reports literal data outside printable ASCII.
type InvalidCharacterError struct {
	SegmentID string
	Position  int
	Value     string
	Char      byte
}

func (e *InvalidCharacterError) Error() string {
	return fmt.Sprintf("x12: %s-%02d value %q contains non-printable character 0x%02x", e.SegmentID, e.Position, e.Value, e.Char)
}

// IncompleteSegmentError reports a segment built without an element its
// schema marks as required.
type IncompleteSegmentError struct {
	SegmentID string
	Position  int
	Name      string
}

func (e *IncompleteSegmentError) Error() string {
	return fmt.Sprintf("x12: %s-%02d (%s) is required", e.SegmentID, e.Position, e.Name)
}

// UnsupportedTransactionTypeError reports a transaction type the codec does
// not implement.
type UnsupportedTransactionTypeError struct {
	Type string
}

func (e *UnsupportedTransactionTypeError) Error() string {
	return fmt.Sprintf("x12: unsupported transaction type %q", e.Type)
}

// InputTooLargeError aborts parsing when raw input exceeds a configured bound.
type InputTooLargeError struct {
	Limit  string
	Max    int
	Actual int
}

func (e *InputTooLargeError) Error() string {
	return fmt.Sprintf("x12: input exceeds %s limit (%d > %d)", e.Limit, e.Actual, e.Max)
}

// MissingRequiredSegmentError is recorded when a transaction lacks a segment
// its type requires.
type MissingRequiredSegmentError struct {
	SegmentID string
}

func (e *MissingRequiredSegmentError) Error() string {
	return fmt.Sprintf("x12: required segment %s is missing", e.SegmentID)
}

// InvalidHierarchyError is recorded for an HL segment that breaks the
// hierarchical level rules of its transaction type.
type InvalidHierarchyError struct {
	ID        string
	ParentID  string
	LevelCode string
	Reason    string
}

func (e *InvalidHierarchyError) Error() string {
	return fmt.Sprintf("x12: HL %s (level %s, parent %q): %s", e.ID, e.LevelCode, e.ParentID, e.Reason)
}

// ControlNumberMismatchError is recorded when a header and its trailer carry
// different control numbers.
type ControlNumberMismatchError struct {
	Header  string
	Trailer string
	Want    string
	Got     string
}

func (e *ControlNumberMismatchError) Error() string {
	return fmt.Sprintf("x12: %s control number %q does not match %s control number %q", e.Trailer, e.Got, e.Header, e.Want)
}

// SegmentCountMismatchError is recorded when a trailer's declared count does
// not match what was actually received.
type SegmentCountMismatchError struct {
	Trailer  string
	Declared string
	Actual   int
}

func (e *SegmentCountMismatchError) Error() string {
	return fmt.Sprintf("x12: %s declares count %q but %d were found", e.Trailer, e.Declared, e.Actual)
}
