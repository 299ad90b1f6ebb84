package stream

import (
	"encoding/hex"
	"hash/crc32"

	"github.com/Neumenon/nanos/nanos"
)

var crcTable = crc32.MakeTable(crc32.IEEE)

// ComputeCRC computes CRC-32 IEEE of the given bytes.
func ComputeCRC(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// StateHash returns the canonical hash of c as raw bytes.
func StateHash(c *nanos.Container) [32]byte {
	h, _ := HexToHash(nanos.CanonicalHash(c))
	return h
}

// PayloadHash parses a doc payload and returns its state hash. Redacted
// entries missing from the payload are missing from the hash too.
func PayloadHash(payload []byte) ([32]byte, error) {
	c, err := nanos.Parse(string(payload))
	if err != nil {
		return [32]byte{}, err
	}
	return StateHash(c), nil
}

// HashToHex converts a 32-byte hash to lowercase hex string.
func HashToHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// HexToHash parses a 64-character hex string to a 32-byte hash.
func HexToHash(s string) ([32]byte, bool) {
	var h [32]byte
	if len(s) != 64 {
		return h, false
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, false
	}
	return h, true
}
