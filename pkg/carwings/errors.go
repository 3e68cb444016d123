package carwings

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	// KindTransport is a network or HTTP level failure.
	KindTransport ErrorKind = iota + 1
	// KindInvalidBody is a missing or non-JSON-object response body.
	KindInvalidBody
	// KindInvalidParams means the server rejected the request parameters.
	KindInvalidParams
	// KindServerError is an application error reported in the response body.
	KindServerError
	// KindVehicleUnreachable means the vehicle did not answer over its cellular link.
	KindVehicleUnreachable
	// KindCipher is bad key material for the password cipher.
	KindCipher
	// KindStartFailed means an asynchronous operation did not return a result key.
	KindStartFailed
	// KindNotImplemented marks payloads whose fields are not decoded yet.
	KindNotImplemented
)

var kindNames = map[ErrorKind]string{
	KindTransport:          "transport error",
	KindInvalidBody:        "invalid body",
	KindInvalidParams:      "invalid params",
	KindServerError:        "server error",
	KindVehicleUnreachable: "vehicle unreachable",
	KindCipher:             "cipher error",
	KindStartFailed:        "start failed",
	KindNotImplemented:     "not implemented",
}

func (k ErrorKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("unknown error kind %d", int(k))
}

// Error is returned for every classified failure of the carwings client.
type Error struct {
	Kind ErrorKind
	// Op is the endpoint or operation that failed.
	Op string
	// Code and Message carry whatever status the server embedded in the body.
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("carwings")
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Code != "" {
		b.WriteString(" (")
		b.WriteString(e.Code)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so the Err* values below can be
// used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrTransport          = &Error{Kind: KindTransport}
	ErrInvalidBody        = &Error{Kind: KindInvalidBody}
	ErrInvalidParams      = &Error{Kind: KindInvalidParams}
	ErrServerError        = &Error{Kind: KindServerError}
	ErrVehicleUnreachable = &Error{Kind: KindVehicleUnreachable}
	ErrCipher             = &Error{Kind: KindCipher}
	ErrStartFailed        = &Error{Kind: KindStartFailed}
	ErrNotImplemented     = &Error{Kind: KindNotImplemented}
)

// KindOf returns the kind of the outermost *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
