package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the concrete variant held by a Value.
type Kind uint8

const (
	KindNone   Kind = iota // Unset; the Bus default
	KindNumber             // float64
	KindText               // string
	KindBool               // bool
	KindBuffer             // opaque bytes
	KindFrame              // image frame
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindBuffer:
		return "buffer"
	case KindFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Value is a tagged union of every signal kind carried on the Bus.
// The zero Value is KindNone.
//
// Values are immutable by convention: Buffer and Frame payloads are shared,
// not copied, so producers must not mutate a slice after publishing it.
type Value struct {
	kind  Kind
	num   float64
	text  string
	flag  bool
	buf   []byte
	frame *Frame
}

// None returns the unset value.
func None() Value { return Value{} }

// Number wraps a numeric signal.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text wraps a string signal.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bool wraps a boolean signal.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Buffer wraps an opaque byte buffer.
func Buffer(b []byte) Value { return Value{kind: KindBuffer, buf: b} }

// Image wraps an image frame. A nil frame yields None.
func Image(f *Frame) Value {
	if f == nil {
		return None()
	}
	return Value{kind: KindFrame, frame: f}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether v is unset.
func (v Value) IsNone() bool { return v.kind == KindNone }

// Number returns the numeric payload.
func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

// Text returns the string payload.
func (v Value) Text() (string, bool) { return v.text, v.kind == KindText }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.flag, v.kind == KindBool }

// Buffer returns the byte payload.
func (v Value) Buffer() ([]byte, bool) { return v.buf, v.kind == KindBuffer }

// Frame returns the image payload.
func (v Value) Frame() (*Frame, bool) { return v.frame, v.kind == KindFrame }

// Float coerces v to a float64. Booleans map to 0/1 and numeric text is
// parsed; everything else yields 0.
func (v Value) Float() float64 {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		if v.flag {
			return 1
		}
		return 0
	case KindText:
		f, err := strconv.ParseFloat(v.text, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Truthy applies the default truthiness policy used by run conditions:
// None, false, 0, NaN, "" and empty buffers are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindText:
		return v.text != ""
	case KindBool:
		return v.flag
	case KindBuffer:
		return len(v.buf) > 0
	case KindFrame:
		return v.frame != nil
	default:
		return false
	}
}

// Equal reports whether two values hold the same kind and payload.
// Frames compare by identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNone:
		return true
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindBool:
		return v.flag == o.flag
	case KindBuffer:
		return bytes.Equal(v.buf, o.buf)
	case KindFrame:
		return v.frame == o.frame
	default:
		return false
	}
}

// String renders v for logs.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindBuffer:
		return fmt.Sprintf("buffer(%d)", len(v.buf))
	case KindFrame:
		return fmt.Sprintf("frame(%dx%dx%d)", v.frame.Width, v.frame.Height, v.frame.Channels)
	default:
		return "<none>"
	}
}

// Any returns the payload as a plain Go value (nil for None).
func (v Value) Any() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindText:
		return v.text
	case KindBool:
		return v.flag
	case KindBuffer:
		return v.buf
	case KindFrame:
		return v.frame
	default:
		return nil
	}
}

// FromAny converts a plain Go value into a Value. Unsupported types are an error.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return None(), nil
	case Value:
		return t, nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return None(), fmt.Errorf("invalid number %q: %w", t, err)
		}
		return Number(f), nil
	case string:
		return Text(t), nil
	case bool:
		return Bool(t), nil
	case []byte:
		return Buffer(t), nil
	case *Frame:
		return Image(t), nil
	default:
		return None(), fmt.Errorf("unsupported value type %T", x)
	}
}

// MarshalJSON encodes scalar payloads directly. Frames and buffers are
// summarized since records persist them out of band.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNone:
		return []byte("null"), nil
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	case KindBool:
		return json.Marshal(v.flag)
	default:
		return json.Marshal(v.String())
	}
}
