package gattcodec

import (
	"time"
)

// Record Access Control Point op codes and operators
const (
	RACPReportStoredRecords     uint8 = 0x01
	RACPDeleteStoredRecords     uint8 = 0x02
	RACPAbortOperation          uint8 = 0x03
	RACPReportNumberOfRecords   uint8 = 0x04
	RACPNumberOfRecordsResponse uint8 = 0x05
	RACPResponseCode            uint8 = 0x06

	RACPAllRecords uint8 = 0x01
)

// AdjustReasonManual is the Current Time adjust reason written on every sync
const AdjustReasonManual uint8 = 0x01

// CurrentTime encodes t (wall clock fields) in the 10-byte Current Time format
func CurrentTime(t time.Time) []byte {
	return NewWriter().
		DateTime(t).
		U8(dayOfWeek(t.Weekday())).
		U8(uint8(t.Nanosecond() / int(time.Millisecond) * 256 / 1000)).
		U8(AdjustReasonManual).
		Bytes()
}

// ContourClock encodes now for the Contour clock characteristic: a valid flag,
// the UTC calendar fields of now and the zone's effective offset in minutes.
func ContourClock(now time.Time) []byte {
	_, offset := now.Zone()
	utc := now.UTC()
	return NewWriter().
		U8(1).
		U16(uint16(utc.Year())).
		U8(uint8(utc.Month())).
		U8(uint8(utc.Day())).
		U8(uint8(utc.Hour())).
		U8(uint8(utc.Minute())).
		U8(uint8(utc.Second())).
		S16(int16(offset / 60)).
		Bytes()
}

// RecordAccessCommand is a two byte RACP request
func RecordAccessCommand(op, operator uint8) []byte {
	return []byte{op, operator}
}

// RecordAccessResponse is a decoded RACP indication
type RecordAccessResponse struct {
	OpCode          uint8
	RequestOpCode   uint8
	ResponseCode    uint8
	NumberOfRecords uint16
}

// ParseRecordAccessResponse decodes a RACP indication; only response codes
// and number-of-records responses carry operands.
func ParseRecordAccessResponse(b []byte) (RecordAccessResponse, error) {
	r := NewReader(b)
	resp := RecordAccessResponse{OpCode: r.U8()}
	r.Skip(1)
	switch resp.OpCode {
	case RACPResponseCode:
		resp.RequestOpCode = r.U8()
		resp.ResponseCode = r.U8()
	case RACPNumberOfRecordsResponse:
		resp.NumberOfRecords = r.U16()
	}
	return resp, r.Err()
}

// Weekday numbering of the Day Of Week characteristic: Monday=1 .. Sunday=7
func dayOfWeek(d time.Weekday) uint8 {
	if d == time.Sunday {
		return 7
	}
	return uint8(d)
}
