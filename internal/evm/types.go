package evm

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Address is a 20-byte ledger identity.
type Address [20]byte

// Word is a 32-byte big-endian value, as carried in event topics and
// ABI-encoded payload slots.
type Word [32]byte

// ZeroAddress is the null identity.
var ZeroAddress Address

// ParseAddress decodes a hex address, with or without the 0x prefix.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(strip0x(s))
	if err != nil {
		return a, fmt.Errorf("evm: bad address %q: %w", s, err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("evm: bad address length %d", len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Hex returns the 0x-prefixed lowercase hex encoding.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// IsZero reports whether the address is the null identity.
func (a Address) IsZero() bool { return a == ZeroAddress }

// Word returns the address left-padded to 32 bytes, as it appears in topics.
func (a Address) Word() Word {
	var w Word
	copy(w[12:], a[:])
	return w
}

// ParseWord decodes a hex word, with or without the 0x prefix. Shorter input
// is left-padded.
func ParseWord(s string) (Word, error) {
	var w Word
	b, err := hex.DecodeString(strip0x(s))
	if err != nil {
		return w, fmt.Errorf("evm: bad word %q: %w", s, err)
	}
	if len(b) > len(w) {
		return w, fmt.Errorf("evm: word too long: %d bytes", len(b))
	}
	copy(w[len(w)-len(b):], b)
	return w, nil
}

// Hex returns the 0x-prefixed lowercase hex encoding.
func (w Word) Hex() string { return "0x" + hex.EncodeToString(w[:]) }

// Big interprets the word as an unsigned big-endian integer.
func (w Word) Big() *big.Int { return new(big.Int).SetBytes(w[:]) }

// Uint112 interprets the low 112 bits of the word as an unsigned integer,
// ignoring higher bits. Reserve-sync events carry reserves at this width.
func (w Word) Uint112() *big.Int { return new(big.Int).SetBytes(w[18:]) }

// Address returns the rightmost 20 bytes, decoding an identity stored in a
// topic slot.
func (w Word) Address() Address {
	var a Address
	copy(a[:], w[12:])
	return a
}

// WordFromBig encodes v into a 32-byte word. Values wider than 256 bits are
// truncated to the low 256 bits.
func WordFromBig(v *big.Int) Word {
	var w Word
	b := v.Bytes()
	if len(b) > len(w) {
		b = b[len(b)-len(w):]
	}
	copy(w[len(w)-len(b):], b)
	return w
}

// MarshalText encodes the address as 0x-prefixed hex, for JSON transport.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

// UnmarshalText decodes a hex address.
func (a *Address) UnmarshalText(b []byte) error {
	v, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalText encodes the word as 0x-prefixed hex, for JSON transport.
func (w Word) MarshalText() ([]byte, error) { return []byte(w.Hex()), nil }

// UnmarshalText decodes a hex word.
func (w *Word) UnmarshalText(b []byte) error {
	v, err := ParseWord(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

// Bytes is a byte slice that transports as 0x-prefixed hex instead of the
// JSON default base64.
type Bytes []byte

// MarshalText encodes the bytes as 0x-prefixed hex.
func (b Bytes) MarshalText() ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(b)), nil
}

// UnmarshalText decodes hex bytes, with or without the 0x prefix.
func (b *Bytes) UnmarshalText(text []byte) error {
	v, err := hex.DecodeString(strip0x(string(text)))
	if err != nil {
		return fmt.Errorf("evm: bad hex bytes: %w", err)
	}
	*b = v
	return nil
}

func strip0x(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
