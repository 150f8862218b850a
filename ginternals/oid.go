package ginternals

import (
	"crypto/sha1"
	"encoding/hex"
)

// OidSize is the length of an Oid, in bytes
const OidSize = 20

// NullOid is the value of an empty Oid, or one that's all 0s
var NullOid = Oid{}

// Oid represents a git object id: the SHA-1 digest of an object's
// uncompressed, header-prefixed bytes
type Oid [OidSize]byte

// Bytes returns the raw Oid as []byte.
// This is different from []byte(oid.String()): this is the 20 raw
// bytes of the digest, not its 40-char hex representation
func (o Oid) Bytes() []byte {
	return o[:]
}

// String converts an Oid to its 40-char lowercase hex representation
func (o Oid) String() string {
	return hex.EncodeToString(o[:])
}

// IsZero returns whether the Oid has the zero value (NullOid)
func (o Oid) IsZero() bool {
	return o == NullOid
}

// NewOidFromContent returns the Oid of the given content.
// The content must already include the "<type> <size>\0" header.
func NewOidFromContent(content []byte) Oid {
	return sha1.Sum(content)
}

// NewOidFromHex returns an Oid from a slice of 20 raw (non-hex-encoded)
// bytes, as found in a tree entry or a packfile ref-delta header
func NewOidFromHex(id []byte) (Oid, error) {
	if len(id) < OidSize {
		return NullOid, ErrInvalidOid
	}
	var oid Oid
	copy(oid[:], id)
	return oid, nil
}

// NewOidFromChars creates an Oid from the given ASCII-hex char bytes
// For the SHA {'9', 'b', '9', '1', 'd', 'a', ...} the oid will be
// {0x9b, 0x91, 0xda, ...}
func NewOidFromChars(id []byte) (Oid, error) {
	return NewOidFromStr(string(id))
}

// NewOidFromStr creates an Oid from its 40-char hex string representation
func NewOidFromStr(id string) (Oid, error) {
	raw, err := hex.DecodeString(id)
	if err != nil {
		return NullOid, ErrInvalidOid
	}
	if len(raw) != OidSize {
		return NullOid, ErrInvalidOid
	}
	var oid Oid
	copy(oid[:], raw)
	return oid, nil
}
