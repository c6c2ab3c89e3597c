package gattcodec

import (
	"encoding/binary"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrShortBuffer is the sticky error of a Reader that ran past the end of its input
var ErrShortBuffer = errors.New("characteristic value too short")

// Reader decodes little-endian GATT values. The first short read sets a sticky
// error; every later read returns a zero value (NaN for floats).
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(b []byte) *Reader { return &Reader{buf: b} }

func (r *Reader) Err() error     { return r.err }
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.Remaining() < n {
		r.err = errors.Wrapf(ErrShortBuffer, "need %d bytes at offset %d, have %d", n, r.off, r.Remaining())
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Skip(n int) { r.take(n) }

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) S16() int16 { return int16(r.U16()) }

func (r *Reader) U24() uint32 {
	b := r.take(3)
	if b == nil {
		return 0
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// SFloat reads an IEEE-11073 16-bit SFLOAT
func (r *Reader) SFloat() float64 {
	b := r.take(2)
	if b == nil {
		return math.NaN()
	}
	return decodeSFloat(binary.LittleEndian.Uint16(b))
}

// Float reads an IEEE-11073 32-bit FLOAT
func (r *Reader) Float() float64 {
	b := r.take(4)
	if b == nil {
		return math.NaN()
	}
	return decodeFloat(binary.LittleEndian.Uint32(b))
}

// DateTime reads the 7-byte Date Time characteristic format as local time.
// A zero year (unknown) yields the zero time.
func (r *Reader) DateTime() time.Time {
	year := r.U16()
	month := r.U8()
	day := r.U8()
	hour := r.U8()
	min := r.U8()
	sec := r.U8()
	if r.err != nil || year == 0 {
		return time.Time{}
	}
	return time.Date(int(year), time.Month(month), int(day), int(hour), int(min), int(sec), 0, time.Local)
}

// String consumes the rest of the buffer as UTF-8, trailing NULs trimmed
func (r *Reader) String() string {
	if r.err != nil {
		return ""
	}
	b := r.take(r.Remaining())
	return strings.TrimRight(string(b), "\x00")
}

func decodeSFloat(raw uint16) float64 {
	switch raw {
	case 0x07FF, 0x0800, 0x0801:
		return math.NaN()
	case 0x07FE:
		return math.Inf(1)
	case 0x0802:
		return math.Inf(-1)
	}
	mantissa := int32(raw & 0x0FFF)
	if mantissa >= 0x0800 {
		mantissa -= 0x1000
	}
	exponent := int32(raw >> 12)
	if exponent >= 0x8 {
		exponent -= 0x10
	}
	return scale(mantissa, int(exponent))
}

func decodeFloat(raw uint32) float64 {
	mantissa := int32(raw & 0x00FFFFFF)
	switch mantissa {
	case 0x007FFFFF, 0x00800000, 0x00800001:
		return math.NaN()
	case 0x007FFFFE:
		return math.Inf(1)
	case 0x00800002:
		return math.Inf(-1)
	}
	if mantissa >= 0x00800000 {
		mantissa -= 0x01000000
	}
	exponent := int8(raw >> 24)
	return scale(mantissa, int(exponent))
}

// negative exponents divide by the power of ten
func scale(mantissa int32, exponent int) float64 {
	if exponent < 0 {
		return float64(mantissa) / math.Pow10(-exponent)
	}
	return float64(mantissa) * math.Pow10(exponent)
}
