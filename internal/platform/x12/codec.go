package x12

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Codec binds trading-partner envelope settings, a control number generator
// and input limits to the package-level encoders and parser.
type Codec struct {
	envelope    Envelope
	envelopeErr error
	numbers     *ControlNumberGenerator
	limits   Limits
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLimits overrides DefaultLimits.
func WithLimits(l Limits) Option {
	return func(c *Codec) { c.limits = l }
}

// WithClock overrides the time stamped into ISA, GS and BHT.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// ErrNoControlNumbers is returned by NewCodec without a generator.
var ErrNoControlNumbers = errors.New("x12: codec requires a control number generator")

// NewCodec creates a codec. An incomplete envelope does not prevent parsing;
// Encode reports it instead.
func NewCodec(env Envelope, numbers *ControlNumberGenerator, logger zerolog.Logger, opts ...Option) (*Codec, error) {
	if numbers == nil {
		return nil, ErrNoControlNumbers
	}
	c := &Codec{
		envelope:    env,
		envelopeErr: env.Validate(),
		numbers:     numbers,
		limits:      DefaultLimits(),
		now:         time.Now,
		logger:      logger.With().Str("component", "x12").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Limits returns the input bounds applied by Parse.
func (c *Codec) Limits() Limits {
	return c.limits
}

// Encode validates a domain request, draws fresh control numbers and returns
// the enveloped transaction. Control numbers are only consumed by requests
// that pass validation.
func (c *Codec) Encode(req Request) (Transaction, error) {
	tt := req.TransactionType()
	if c.envelopeErr != nil {
		c.logger.Warn().Err(c.envelopeErr).Str("transaction_type", string(tt)).Msg("envelope not configured")
		return Transaction{}, c.envelopeErr
	}
	if err := req.Validate(); err != nil {
		c.logger.Warn().Err(err).Str("transaction_type", string(tt)).Msg("request rejected")
		return Transaction{}, err
	}

	h := Header{
		Control:      c.numbers.NextTriple(),
		CreatedAt:    c.now(),
		OriginatorID: OriginatorID(c.envelope.SenderID),
	}
	body, err := req.encode(h)
	if err != nil {
		c.logger.Warn().Err(err).Str("transaction_type", string(tt)).Msg("encode failed")
		return Transaction{}, err
	}

	tx, err := Wrap(tt, body, h.Control, c.envelope, h.CreatedAt)
	if err != nil {
		c.logger.Warn().Err(err).Str("transaction_type", string(tt)).Msg("envelope failed")
		return Transaction{}, err
	}

	c.logger.Debug().
		Str("transaction_type", string(tt)).
		Str("interchange", h.Control.Interchange).
		Str("group", h.Control.Group).
		Str("transaction", h.Control.Transaction).
		Int("segments", tx.SegmentCount()).
		Msg("transaction encoded")
	return tx, nil
}

// Parse parses raw X12 text with the codec's limits.
func (c *Codec) Parse(raw []byte) (*Result, error) {
	r, err := Parse(raw, c.limits)
	return c.logParse(r, err)
}

// ParseAs parses raw X12 text that is expected to be of type tt.
func (c *Codec) ParseAs(raw []byte, tt TransactionType) (*Result, error) {
	r, err := ParseAs(raw, tt, c.limits)
	return c.logParse(r, err)
}

func (c *Codec) logParse(r *Result, err error) (*Result, error) {
	if err != nil {
		c.logger.Warn().Err(err).Msg("parse rejected")
		return nil, err
	}
	c.logger.Debug().
		Str("transaction_type", string(r.Type)).
		Str("status", string(r.Status)).
		Int("errors", len(r.Errors())).
		Int("warnings", len(r.Warnings())).
		Msg("transaction parsed")
	return r, nil
}
