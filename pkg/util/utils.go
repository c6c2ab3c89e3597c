package util

import (
	"encoding/hex"
	"strings"
)

// AddrEqualAddr compares two peripheral addresses ignoring case
func AddrEqualAddr(a string, b string) bool {
	return strings.ToUpper(a) == strings.ToUpper(b)
}

// NormalizeUUID returns the canonical 32 hex digit lowercase form of a UUID.
// 16-bit and 32-bit SIG aliases ("2a37", "0x2A37") are expanded onto the Bluetooth base UUID.
func NormalizeUUID(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")
	s = strings.Replace(s, "-", "", -1)
	switch len(s) {
	case 4:
		return "0000" + s + BaseUUIDSuffix
	case 8:
		return s + BaseUUIDSuffix
	}
	return s
}

// ShortUUID returns the 16-bit alias of a SIG UUID, or the canonical form for vendor UUIDs
func ShortUUID(s string) string {
	n := NormalizeUUID(s)
	if len(n) == 32 && strings.HasPrefix(n, "0000") && strings.HasSuffix(n, BaseUUIDSuffix) {
		return n[4:8]
	}
	return n
}

// UuidEqualStr compares two UUIDs in any textual form
func UuidEqualStr(a string, b string) bool {
	return NormalizeUUID(a) == NormalizeUUID(b)
}

// IsValidUUID reports whether s normalizes to a 128-bit UUID
func IsValidUUID(s string) bool {
	n := NormalizeUUID(s)
	if len(n) != 32 {
		return false
	}
	_, err := hex.DecodeString(n)
	return err == nil
}

// Hex renders a payload the way write and update diagnostics print it
func Hex(b []byte) string {
	return hex.EncodeToString(b)
}
