package protocol

import (
	"encoding/json"
	"fmt"
	"io"
)

// DecodeError 标记不可解析的帧。连接层丢弃并记录，不作为致命错误。
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Codec 帧编解码器
type Codec interface {
	Encode(w io.Writer, e *Envelope) error
	Decode(r io.Reader, e *Envelope, maxSize int) error
}

// JSONCodec encodes envelopes as single-line JSON text frames, the only
// encoding rosbridge speaks.
type JSONCodec struct{}

func (JSONCodec) Encode(w io.Writer, e *Envelope) error {
	if !Known(e.Op) {
		return fmt.Errorf("encode: unknown op %q", e.Op)
	}
	return json.NewEncoder(w).Encode(e)
}

func (JSONCodec) Decode(r io.Reader, e *Envelope, maxSize int) error {
	rr := r
	if maxSize > 0 {
		rr = io.LimitReader(r, int64(maxSize))
	}
	if err := json.NewDecoder(rr).Decode(e); err != nil {
		return &DecodeError{Reason: "malformed frame", Err: err}
	}
	if e.Op == "" {
		return &DecodeError{Reason: "missing field: op"}
	}
	if !Known(e.Op) {
		return &DecodeError{Reason: fmt.Sprintf("unrecognized op %q", e.Op)}
	}
	return nil
}
