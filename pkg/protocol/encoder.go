package protocol

import "math"

// Encoder is a binary encoder that appends data to an internal buffer.
// Strings and byte blobs are length-prefixed with a fixed 4-byte
// big-endian u32 rather than a varint, per spec.md §6's field layouts.
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new encoder with a default initial capacity.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// Reset resets the encoder to empty state, reusing the underlying buffer.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// Bytes returns the encoded bytes. Valid until the next Reset or Write.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes currently encoded.
func (e *Encoder) Len() int { return len(e.buf) }

// WriteByte appends a single byte.
func (e *Encoder) WriteByte(b byte) { e.buf = append(e.buf, b) }

// WriteBytes appends raw, unprefixed bytes.
func (e *Encoder) WriteBytes(b []byte) { e.buf = append(e.buf, b...) }

// WriteBool appends a boolean as a single byte.
func (e *Encoder) WriteBool(b bool) {
	if b {
		e.buf = append(e.buf, 0x01)
	} else {
		e.buf = append(e.buf, 0x00)
	}
}

// WriteUint32 appends a uint32 in big-endian byte order.
func (e *Encoder) WriteUint32(v uint32) {
	e.buf = append(e.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// WriteUint64 appends a uint64 in big-endian byte order.
func (e *Encoder) WriteUint64(v uint64) {
	e.buf = append(e.buf,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// WriteInt64 appends an int64 in big-endian byte order.
func (e *Encoder) WriteInt64(v int64) { e.WriteUint64(uint64(v)) }

// WriteFloat64 appends a float64 in IEEE-754 big-endian format.
func (e *Encoder) WriteFloat64(v float64) { e.WriteUint64(math.Float64bits(v)) }

// WriteString appends a u32-length-prefixed UTF-8 string (spec.md §6).
func (e *Encoder) WriteString(s string) {
	e.WriteUint32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteOptString appends a present flag followed by WriteString's
// encoding, for spec.md's "optional string" fields (e.g. Asset.mime).
func (e *Encoder) WriteOptString(s *string) {
	if s == nil {
		e.WriteBool(false)
		return
	}
	e.WriteBool(true)
	e.WriteString(*s)
}

// WriteBlob appends a u32-length-prefixed byte blob.
func (e *Encoder) WriteBlob(b []byte) {
	e.WriteUint32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}
