package stream

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Neumenon/nanos/nanos"
)

// Reader reads frames from an io.Reader.
type Reader struct {
	r          *bufio.Reader
	maxPayload int
	verifyCRC  bool
	verifyBase bool
	state      map[uint64][32]byte
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxPayload sets the maximum payload size (default: 64 MiB).
func WithMaxPayload(max int) ReaderOption {
	return func(r *Reader) {
		r.maxPayload = max
	}
}

// WithoutCRCVerification disables CRC checks.
func WithoutCRCVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyCRC = false
	}
}

// WithBaseVerification checks that every doc frame carrying a base hash
// chains onto the previous doc of the same SID.
func WithBaseVerification() ReaderOption {
	return func(r *Reader) {
		r.verifyBase = true
	}
}

// NewReader creates a new frame reader. CRCs are verified by default.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	reader := &Reader{
		r:          bufio.NewReader(r),
		maxPayload: MaxPayloadSize,
		verifyCRC:  true,
		state:      make(map[uint64][32]byte),
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Next reads and returns the next frame.
// Returns io.EOF when no more frames are available.
func (r *Reader) Next() (*Frame, error) {
	headerLine, err := r.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && strings.TrimSpace(headerLine) == "" {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	frame, payloadLen, err := parseHeader(headerLine)
	if err != nil {
		return nil, err
	}
	if payloadLen > r.maxPayload {
		return nil, &ParseError{Reason: fmt.Sprintf("payload too large: %d > %d", payloadLen, r.maxPayload), Offset: -1}
	}

	if payloadLen > 0 {
		frame.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r.r, frame.Payload); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}

	// Trailing newline is optional at EOF
	if b, err := r.r.ReadByte(); err == nil && b != '\n' {
		r.r.UnreadByte()
	}

	if r.verifyCRC && frame.CRC != nil {
		if computed := ComputeCRC(frame.Payload); computed != *frame.CRC {
			return nil, &CRCMismatchError{Expected: *frame.CRC, Got: computed}
		}
	}

	if r.verifyBase && frame.Kind == KindDoc {
		if err := r.chain(frame); err != nil {
			return nil, err
		}
	}
	if frame.Final {
		delete(r.state, frame.SID)
	}
	return frame, nil
}

func (r *Reader) chain(frame *Frame) error {
	if prev, ok := r.state[frame.SID]; ok && frame.Base != nil && *frame.Base != prev {
		return &BaseMismatchError{SID: frame.SID, Seq: frame.Seq, Expected: prev, Got: *frame.Base}
	}
	state, err := PayloadHash(frame.Payload)
	if err != nil {
		return fmt.Errorf("doc payload on sid %d seq %d: %w", frame.SID, frame.Seq, err)
	}
	r.state[frame.SID] = state
	return nil
}

// ReadAll reads all frames until EOF.
func (r *Reader) ReadAll() ([]*Frame, error) {
	var frames []*Frame
	for {
		frame, err := r.Next()
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, frame)
	}
}

// Doc parses the payload of a doc frame.
func (f *Frame) Doc() (*nanos.Container, error) {
	if f.Kind != KindDoc {
		return nil, fmt.Errorf("stream: frame kind %s carries no document", f.Kind)
	}
	return nanos.Parse(string(f.Payload))
}

// parseHeader decodes the SLID header line. The returned frame has no
// payload yet; the declared payload length is returned separately.
func parseHeader(line string) (*Frame, int, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[(") {
		return nil, 0, &ParseError{Reason: "expected [(", Offset: 0}
	}
	h, err := nanos.Parse(line)
	if err != nil {
		return nil, 0, &ParseError{Reason: "bad header: " + err.Error(), Offset: -1}
	}

	frame := &Frame{Version: Version}
	if v, ok, err := uintField(h, "v", math.MaxUint8); err != nil {
		return nil, 0, err
	} else if ok {
		frame.Version = uint8(v)
	}
	if frame.SID, _, err = uintField(h, "sid", math.MaxInt64); err != nil {
		return nil, 0, err
	}
	if frame.Seq, _, err = uintField(h, "seq", math.MaxInt64); err != nil {
		return nil, 0, err
	}
	length, _, err := uintField(h, "len", math.MaxInt32)
	if err != nil {
		return nil, 0, err
	}

	if v, ok := h.Get("kind"); ok {
		kind, valid := ParseKind(fmt.Sprint(v))
		if !valid {
			return nil, 0, &ParseError{Reason: fmt.Sprintf("invalid kind: %v", v), Offset: -1}
		}
		frame.Kind = kind
	}

	if v, ok := h.Get("crc"); ok {
		s, _ := v.(string)
		crc, valid := parseCRC(s)
		if !valid {
			return nil, 0, &ParseError{Reason: fmt.Sprintf("invalid crc: %v", v), Offset: -1}
		}
		frame.CRC = &crc
	}

	if v, ok := h.Get("base"); ok {
		s, _ := v.(string)
		base, valid := HexToHash(strings.TrimPrefix(s, "sha256:"))
		if !valid {
			return nil, 0, &ParseError{Reason: fmt.Sprintf("invalid base: %v", v), Offset: -1}
		}
		frame.Base = &base
	}

	if v, ok := h.Get("final"); ok {
		final, isBool := v.(bool)
		if !isBool {
			return nil, 0, &ParseError{Reason: fmt.Sprintf("invalid final: %v", v), Offset: -1}
		}
		frame.Final = final
	}

	return frame, int(length), nil
}

func uintField(h *nanos.Container, key string, max uint64) (uint64, bool, error) {
	v, ok := h.Get(key)
	if !ok {
		return 0, false, nil
	}
	n, isInt := v.(int64)
	if !isInt || n < 0 || uint64(n) > max {
		return 0, true, &ParseError{Reason: fmt.Sprintf("invalid %s: %v", key, v), Offset: -1}
	}
	return uint64(n), true, nil
}

// parseCRC parses "crc32:XXXXXXXX" or a bare 8-digit hex value.
func parseCRC(val string) (uint32, bool) {
	val = strings.TrimPrefix(val, "crc32:")
	if len(val) != 8 {
		return 0, false
	}
	v, err := strconv.ParseUint(val, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
