package model

import "errors"

// Sentinel errors shared by the engine, the stores and the HTTP boundary.
// Producers wrap them with context; callers test with errors.Is.
var (
	ErrDataInsufficient    = errors.New("not enough price history")
	ErrUpstreamUnavailable = errors.New("market data unavailable")
	ErrInvalidSymbol       = errors.New("invalid symbol")

	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOTPRequired        = errors.New("one-time code required")
)

// Kind is the stable machine-readable name of an error class.
type Kind string

const (
	KindBadRequest          Kind = "bad_request"
	KindUnauthorized        Kind = "unauthorized"
	KindNotFound            Kind = "not_found"
	KindEmailTaken          Kind = "email_taken"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindOTPRequired         Kind = "otp_required"
	KindInvalidSymbol       Kind = "invalid_symbol"
	KindDataInsufficient    Kind = "data_insufficient"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInternal            Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrDataInsufficient, KindDataInsufficient},
	{ErrUpstreamUnavailable, KindUpstreamUnavailable},
	{ErrInvalidSymbol, KindInvalidSymbol},
	{ErrBadRequest, KindBadRequest},
	{ErrUnauthorized, KindUnauthorized},
	{ErrNotFound, KindNotFound},
	{ErrEmailTaken, KindEmailTaken},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrOTPRequired, KindOTPRequired},
}

// ErrorKind classifies err. Unknown errors are KindInternal.
func ErrorKind(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
