// Package stream frames SLID documents for change feeds.
//
// A feed is a sequence of frames, each a one-line header followed by the
// payload bytes and a newline. The header is itself a SLID list:
//
//	[(v=1 sid=0 seq=3 kind=doc len=27 crc=crc32:5d2c1f0a base=sha256:9f86...)]
//	[(name=server ports=[80 443])]
//
// Frames provide:
//   - Message boundaries via an explicit payload length
//   - Multiplexing via source ids (sid)
//   - Ordering via per-source sequence numbers (seq)
//   - Integrity via optional CRC-32
//   - Chaining via the state hash of the snapshot a doc replaces (base)
//
// Headers are never part of a document's canonical hash.
package stream

import (
	"fmt"
	"strconv"
)

// Version is the frame format version.
const Version uint8 = 1

// FrameKind indicates the semantic category of a frame's payload.
type FrameKind uint8

const (
	KindDoc  FrameKind = 0 // Full SLID snapshot
	KindErr  FrameKind = 1 // Error text, e.g. a snapshot that failed to parse
	KindPing FrameKind = 2 // Keepalive
)

// String returns the kind name.
func (k FrameKind) String() string {
	switch k {
	case KindDoc:
		return "doc"
	case KindErr:
		return "err"
	case KindPing:
		return "ping"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// ParseKind parses a kind name or numeric value.
func ParseKind(s string) (FrameKind, bool) {
	switch s {
	case "doc":
		return KindDoc, true
	case "err":
		return KindErr, true
	case "ping":
		return KindPing, true
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n > uint64(KindPing) {
		return 0, false
	}
	return FrameKind(n), true
}

// Frame is a single framed payload.
type Frame struct {
	Version uint8
	SID     uint64 // Source identifier
	Seq     uint64 // Per-SID sequence number
	Kind    FrameKind
	Payload []byte

	CRC   *uint32   // CRC-32 of payload, nil if absent
	Base  *[32]byte // State hash of the previous doc on this SID, nil if absent
	Final bool      // Last frame for this SID
}

// HasCRC returns true if CRC is present.
func (f *Frame) HasCRC() bool {
	return f.CRC != nil
}

// HasBase returns true if base hash is present.
func (f *Frame) HasBase() bool {
	return f.Base != nil
}

// MaxPayloadSize is the default maximum payload size (64 MiB).
const MaxPayloadSize = 64 * 1024 * 1024

// ParseError reports a malformed frame.
type ParseError struct {
	Reason string
	Offset int
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("stream: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("stream: %s", e.Reason)
}

// CRCMismatchError is returned when CRC verification fails.
type CRCMismatchError struct {
	Expected uint32
	Got      uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("stream: CRC mismatch: expected %08x, got %08x", e.Expected, e.Got)
}

// BaseMismatchError is returned when a doc frame does not chain onto the
// previous doc of the same source.
type BaseMismatchError struct {
	SID      uint64
	Seq      uint64
	Expected [32]byte
	Got      [32]byte
}

func (e *BaseMismatchError) Error() string {
	return fmt.Sprintf("stream: base hash mismatch on sid %d seq %d: expected %s, got %s",
		e.SID, e.Seq, HashToHex(e.Expected)[:12], HashToHex(e.Got)[:12])
}
