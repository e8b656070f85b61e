package errors

import (
	"encoding/json"
	"fmt"
)

// Kind classifies an error for the caller: validation errors are
// caller-correctable and never retried, state errors are terminal for the
// request, conflicts are transient and safe to retry with fresh state, and
// config errors degrade to a documented default instead of failing.
type Kind string

const (
	KindValidation Kind = "validation"
	KindState      Kind = "state"
	KindConflict   Kind = "conflict"
	KindConfig     Kind = "config"
)

type AppError struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`         // User-facing message
	Field   string `json:"field,omitempty"` // Offending input field, if any
	Limit   string `json:"limit,omitempty"` // Violated bound, if any
	Err     error  `json:"-"`               // Underlying error (optional)
}

var (
	ErrAmountNotPositive = &AppError{Kind: KindValidation, Code: "amount_not_positive", Message: "bid amount must be greater than zero", Field: "amount"}
	ErrSelfBid           = &AppError{Kind: KindValidation, Code: "self_bid", Message: "you cannot bid on your own auction"}
	ErrBidderSuspended   = &AppError{Kind: KindValidation, Code: "bidder_suspended", Message: "your account is suspended from bidding"}
	ErrBidTooLow         = &AppError{Kind: KindValidation, Code: "bid_too_low", Message: "bid amount must be higher than current price", Field: "amount"}

	ErrAuctionNotLive    = &AppError{Kind: KindState, Code: "auction_not_live", Message: "bidding is allowed only on live auctions"}
	ErrAuctionEnded      = &AppError{Kind: KindState, Code: "auction_ended", Message: "this auction has already ended"}
	ErrAuctionNotFound   = &AppError{Kind: KindState, Code: "auction_not_found", Message: "auction not found"}
	ErrEscrowNotFound    = &AppError{Kind: KindState, Code: "escrow_not_found", Message: "escrow not found"}
	ErrEscrowExists      = &AppError{Kind: KindState, Code: "escrow_exists", Message: "escrow already exists for this auction"}
	ErrUserNotFound      = &AppError{Kind: KindState, Code: "user_not_found", Message: "user not found"}
	ErrBadMessageFormat  = &AppError{Kind: KindValidation, Code: "bad_message_format", Message: "invalid message format"}
	ErrUnknownMessage    = &AppError{Kind: KindValidation, Code: "unknown_message_type", Message: "unknown message type"}
	ErrRateLimitExceeded = &AppError{Kind: KindValidation, Code: "rate_limit_exceeded", Message: "rate limit exceeded"}

	ErrConcurrentConflict = &AppError{Kind: KindConflict, Code: "concurrent_conflict", Message: "concurrent update detected, retry with fresh state"}

	ErrInternalServer = &AppError{Kind: KindState, Code: "internal_server_error", Message: "internal server error"}
)

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches by code so errors.Is works against the sentinels above even
// when context was attached via WithLimit/WithField.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithLimit returns a copy carrying the violated bound, leaving the shared
// sentinel untouched.
func (e *AppError) WithLimit(limit string) *AppError {
	c := *e
	c.Limit = limit
	return &c
}

func (e *AppError) WithField(field string) *AppError {
	c := *e
	c.Field = field
	return &c
}

func (e *AppError) ToJSON() []byte {
	payload := struct {
		Type  string    `json:"type"`
		Error *AppError `json:"error"`
	}{Type: "error", Error: e}
	b, err := json.Marshal(payload)
	if err != nil {
		return []byte(`{"type":"error","error":{"code":"internal_server_error"}}`)
	}
	return b
}

// Wrapping utility
func Wrap(err error, message string) *AppError {
	return &AppError{Kind: KindState, Code: "internal_server_error", Message: message, Err: err}
}

// Error creation utility
func New(kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}
