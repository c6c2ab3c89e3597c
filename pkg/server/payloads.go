package server

import (
	"time"

	"github.com/Krajiyah/ble-health/pkg/gattcodec"
)

// HeartRatePayload encodes a Heart Rate Measurement with sensor contact detected.
// Rates above 255 use the 16-bit format; rr intervals are in 1/1024 s.
func HeartRatePayload(bpm int, rr []time.Duration) []byte {
	flags := uint8(0x06)
	if bpm > 0xFF {
		flags |= 0x01
	}
	if len(rr) > 0 {
		flags |= 0x10
	}
	w := gattcodec.NewWriter().U8(flags)
	if bpm > 0xFF {
		w.U16(uint16(bpm))
	} else {
		w.U8(uint8(bpm))
	}
	for _, d := range rr {
		w.U16(uint16(d * 1024 / time.Second))
	}
	return w.Bytes()
}

// BatteryPayload encodes a battery percentage clamped to 0..100
func BatteryPayload(pct int) []byte {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return []byte{uint8(pct)}
}

// PnPIDPayload encodes the Device Information PnP ID
func PnPIDPayload(source uint8, vendor, product, version uint16) []byte {
	return gattcodec.NewWriter().U8(source).U16(vendor).U16(product).U16(version).Bytes()
}
