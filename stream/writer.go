package stream

import (
	"fmt"
	"io"

	"github.com/Neumenon/nanos/nanos"
)

// Writer writes frames to an io.Writer. Sequence numbers and base hashes
// are tracked per SID. A Writer is not safe for concurrent use.
type Writer struct {
	w       io.Writer
	withCRC bool
	seq     map[uint64]uint64
	last    map[uint64][32]byte
}

// NewWriter creates a new frame writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, seq: make(map[uint64]uint64), last: make(map[uint64][32]byte)}
}

// NewWriterWithCRC creates a writer that computes CRC for each frame.
func NewWriterWithCRC(w io.Writer) *Writer {
	fw := NewWriter(w)
	fw.withCRC = true
	return fw
}

// Header returns the SLID header line for f, without the trailing newline.
func (w *Writer) Header(f *Frame) string {
	h := nanos.New()
	version := f.Version
	if version == 0 {
		version = Version
	}
	h.Set("v", int(version))
	h.Set("sid", f.SID)
	h.Set("seq", f.Seq)
	h.Set("kind", f.Kind.String())
	h.Set("len", len(f.Payload))

	crc := f.CRC
	if crc == nil && w.withCRC && len(f.Payload) > 0 {
		computed := ComputeCRC(f.Payload)
		crc = &computed
	}
	if crc != nil {
		h.Set("crc", fmt.Sprintf("crc32:%08x", *crc))
	}
	if f.Base != nil {
		h.Set("base", "sha256:"+HashToHex(*f.Base))
	}
	if f.Final {
		h.Set("final", true)
	}
	return h.String()
}

// WriteFrame writes a single frame:
//
//	[(v=1 sid=N seq=N kind=K len=N [crc=crc32:X] [base=sha256:X] [final=@t])]\n
//	<payload bytes>\n
func (w *Writer) WriteFrame(f *Frame) error {
	if _, err := io.WriteString(w.w, w.Header(f)+"\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if len(f.Payload) > 0 {
		if _, err := w.w.Write(f.Payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	}
	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}
	return nil
}

func (w *Writer) nextSeq(sid uint64) uint64 {
	seq := w.seq[sid]
	w.seq[sid] = seq + 1
	return seq
}

// WriteDoc writes c as a doc frame on sid. The frame's base is the state
// hash of the previous doc written on the same sid.
func (w *Writer) WriteDoc(sid uint64, c *nanos.Container, opts nanos.EmitOptions) error {
	payload := []byte(c.SLID(opts))
	state, err := PayloadHash(payload)
	if err != nil {
		return fmt.Errorf("hash payload: %w", err)
	}

	f := &Frame{Version: Version, SID: sid, Kind: KindDoc, Payload: payload}
	if prev, ok := w.last[sid]; ok {
		f.Base = &prev
	}
	f.Seq = w.nextSeq(sid)
	if err := w.WriteFrame(f); err != nil {
		return err
	}
	w.last[sid] = state
	return nil
}

// WriteErr writes an error frame carrying the error text.
func (w *Writer) WriteErr(sid uint64, cause error) error {
	return w.WriteFrame(&Frame{
		Version: Version,
		SID:     sid,
		Seq:     w.nextSeq(sid),
		Kind:    KindErr,
		Payload: []byte(cause.Error()),
	})
}

// WritePing writes a keepalive frame.
func (w *Writer) WritePing(sid uint64) error {
	return w.WriteFrame(&Frame{Version: Version, SID: sid, Seq: w.nextSeq(sid), Kind: KindPing})
}

// WriteFinal writes an empty ping frame marked final and forgets sid.
func (w *Writer) WriteFinal(sid uint64) error {
	err := w.WriteFrame(&Frame{Version: Version, SID: sid, Seq: w.nextSeq(sid), Kind: KindPing, Final: true})
	delete(w.seq, sid)
	delete(w.last, sid)
	return err
}
