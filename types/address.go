package types

import "strings"

// Address is an opaque identity reference on the settlement substrate.
// FlowStream never interprets it beyond equality; wallet and key
// management are the caller's concern.
type Address string

// NormalizeAddress lowercases an address for comparison. Hex-style
// substrate addresses are case-insensitive; other substrates should
// supply already-canonical strings.
func NormalizeAddress(s string) Address {
	return Address(strings.ToLower(strings.TrimSpace(s)))
}

// Normalize returns the lowercased form of the address, suitable as a map
// key when case-insensitive identity is needed.
func (a Address) Normalize() Address {
	return NormalizeAddress(string(a))
}

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool { return a == "" }

// Equal compares two addresses case-insensitively.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(string(a), string(other))
}

// String returns the address string.
func (a Address) String() string { return string(a) }
