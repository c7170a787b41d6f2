package protocol

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

// Envelope is the decoded body of every backend response.
type Envelope struct {
	Err    json.RawMessage `json:"err"`
	ErrMsg string          `json:"errmsg,omitempty"`
	Data   json.RawMessage `json:"data"`

	// Raw is the inflated document text.
	Raw []byte `json:"-"`
}

// Code returns the numeric err field. ok is false when err is missing or
// not a JSON number.
func (e *Envelope) Code() (code float64, ok bool) {
	raw := bytes.TrimSpace(e.Err)
	if len(raw) == 0 {
		return 0, false
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, false
	}
	code, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, false
	}
	return code, true
}

// OK reports whether err is exactly numeric zero.
func (e *Envelope) OK() bool {
	code, ok := e.Code()
	return ok && code == 0
}

// Check returns a *ProtocolError unless the envelope reports success.
func (e *Envelope) Check() error {
	if e.OK() {
		return nil
	}
	return &ProtocolError{Envelope: e}
}

// DecodeData unmarshals the data field into v.
func (e *Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return ErrNoData
	}
	return sonic.Unmarshal(e.Data, v)
}

// Decode inflates body and parses the envelope inside it.
// Failures are returned as *DecompressionError; the envelope's err field is
// not inspected.
func Decode(body []byte) (*Envelope, error) {
	text, err := Inflate(body)
	if err != nil {
		return nil, &DecompressionError{Stage: StageInflate, Err: err}
	}

	var env Envelope
	if err := sonic.Unmarshal(text, &env); err != nil {
		return nil, &DecompressionError{Stage: StageParse, Err: err}
	}
	env.Raw = text
	return &env, nil
}

// Inflate decompresses a zlib stream, falling back to raw DEFLATE when the
// body does not read as zlib. A raw stream can start with two bytes that
// pass the zlib header check, so any zlib failure triggers the fallback.
// The zlib error is returned when both readers fail.
func Inflate(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	text, zerr := inflateZlib(body)
	if zerr == nil {
		return text, nil
	}

	fr := flate.NewReader(bytes.NewReader(body))
	defer fr.Close()
	text, err := io.ReadAll(fr)
	if err != nil {
		return nil, zerr
	}
	return text, nil
}

func inflateZlib(body []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// Deflate compresses data as a zlib stream, the format the backend sends.
func Deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
