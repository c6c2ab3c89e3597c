package gattcodec

import (
	"encoding/binary"
	"time"
)

// Writer builds little-endian GATT values
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) U8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) U16(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) S16(v int16) *Writer { return w.U16(uint16(v)) }

func (w *Writer) U32(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

// DateTime appends the 7-byte Date Time format of t's wall clock fields
func (w *Writer) DateTime(t time.Time) *Writer {
	return w.U16(uint16(t.Year())).
		U8(uint8(t.Month())).
		U8(uint8(t.Day())).
		U8(uint8(t.Hour())).
		U8(uint8(t.Minute())).
		U8(uint8(t.Second()))
}

func (w *Writer) Bytes() []byte { return w.buf }
