package protocol

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrConflictingAgents = errors.New("protocol: bsgAgent and unityAgent cannot both be enabled")
	ErrEmptyBody         = errors.New("protocol: empty response body")
	ErrNoData            = errors.New("protocol: envelope has no data")
)

// Stage names the decoding step that failed.
type Stage string

const (
	StageInflate Stage = "inflate"
	StageParse   Stage = "parse"
)

// DecompressionError reports a response body that could not be inflated or
// parsed. It usually means a protocol version mismatch or corruption.
type DecompressionError struct {
	Stage Stage
	Err   error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("protocol: %s response body: %v", e.Stage, e.Err)
}

func (e *DecompressionError) Unwrap() error {
	return e.Err
}

// ProtocolError is a well-formed envelope whose err field is not zero.
// Envelope carries the full document so callers can branch on backend codes.
type ProtocolError struct {
	Envelope *Envelope
}

func (e *ProtocolError) Error() string {
	code := "missing"
	if c, ok := e.Envelope.Code(); ok {
		code = strconv.FormatFloat(c, 'f', -1, 64)
	} else if len(e.Envelope.Err) > 0 {
		code = string(e.Envelope.Err)
	}
	if e.Envelope.ErrMsg == "" {
		return fmt.Sprintf("protocol: backend error %s", code)
	}
	return fmt.Sprintf("protocol: backend error %s: %s", code, e.Envelope.ErrMsg)
}

// IsDecompression checks if err is a *DecompressionError.
func IsDecompression(err error) bool {
	var e *DecompressionError
	return errors.As(err, &e)
}

// IsProtocol checks if err is a *ProtocolError.
func IsProtocol(err error) bool {
	var e *ProtocolError
	return errors.As(err, &e)
}

// AsProtocol returns the envelope-carrying error inside err, if any.
func AsProtocol(err error) (*ProtocolError, bool) {
	var e *ProtocolError
	ok := errors.As(err, &e)
	return e, ok
}
