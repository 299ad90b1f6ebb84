package stream

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Neumenon/nanos/nanos"
)

// ============================================================
// Writer Tests
// ============================================================

func TestWriter_MinimalFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.WriteFrame(&Frame{
		Version: 1,
		Kind:    KindDoc,
		Payload: []byte("[(a)]"),
	})
	if err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	got := buf.String()
	want := "[(v=1 sid=0 seq=0 kind=doc len=5)]\n[(a)]\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriter_WithCRC(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriterWithCRC(&buf)

	if err := w.WriteFrame(&Frame{SID: 1, Seq: 5, Kind: KindErr, Payload: []byte("123456789")}); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	want := "[(v=1 sid=1 seq=5 kind=err len=9 crc=crc32:cbf43926)]\n123456789\n"
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriter_WithBaseAndFinal(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var base [32]byte
	for i := range base {
		base[i] = byte(i + 1)
	}
	err := w.WriteFrame(&Frame{Seq: 10, Kind: KindPing, Base: &base, Final: true})
	if err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "base=sha256:0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20") {
		t.Errorf("expected base hash in output: %s", got)
	}
	if !strings.Contains(got, "final=@t") {
		t.Errorf("expected final=@t in output: %s", got)
	}
	if !strings.HasSuffix(got, "len=0 base=sha256:0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20 final=@t)]\n\n") {
		t.Errorf("unexpected frame layout: %q", got)
	}
}

func TestWriter_DocSequence(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	first, _ := nanos.Parse("[(a b)]")
	second, _ := nanos.Parse("[(a b c)]")
	other, _ := nanos.Parse("[(x=1)]")

	for _, step := range []struct {
		sid uint64
		doc *nanos.Container
	}{{0, first}, {1, other}, {0, second}} {
		if err := w.WriteDoc(step.sid, step.doc, nanos.DefaultEmitOptions()); err != nil {
			t.Fatalf("WriteDoc failed: %v", err)
		}
	}
	if err := w.WriteFinal(0); err != nil {
		t.Fatalf("WriteFinal failed: %v", err)
	}

	frames, err := NewReader(&buf, WithBaseVerification()).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}

	if frames[0].Seq != 0 || frames[0].HasBase() {
		t.Errorf("first doc: seq=%d base=%v", frames[0].Seq, frames[0].HasBase())
	}
	if frames[1].SID != 1 || frames[1].Seq != 0 || frames[1].HasBase() {
		t.Errorf("other sid should start its own sequence: %+v", frames[1])
	}
	if frames[2].Seq != 1 || !frames[2].HasBase() {
		t.Fatalf("second doc should chain: %+v", frames[2])
	}
	if *frames[2].Base != StateHash(first) {
		t.Error("second doc base should be the state hash of the first")
	}
	if !frames[3].Final || frames[3].Seq != 2 || frames[3].Kind != KindPing {
		t.Errorf("unexpected final frame: %+v", frames[3])
	}

	doc, err := frames[2].Doc()
	if err != nil {
		t.Fatalf("Doc failed: %v", err)
	}
	if doc.String() != "[(a b c)]" {
		t.Errorf("Doc = %s", doc)
	}
	if _, err := frames[3].Doc(); err == nil {
		t.Error("expected error decoding a ping frame")
	}
}

func TestWriter_DocRedacted(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	c, _ := nanos.Parse("[(user=u password=pw)]")
	c.Redact("password")
	if err := w.WriteDoc(0, c, nanos.EmitOptions{Redact: nanos.RedactComment}); err != nil {
		t.Fatalf("WriteDoc failed: %v", err)
	}
	if err := w.WriteDoc(0, c, nanos.EmitOptions{Redact: nanos.RedactComment}); err != nil {
		t.Fatalf("WriteDoc failed: %v", err)
	}

	frames, err := NewReader(&buf, WithBaseVerification()).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if got := string(frames[0].Payload); got != "[(user=u /*?=?*/)]" {
		t.Errorf("payload = %s", got)
	}
	if *frames[1].Base == StateHash(c) {
		t.Error("base should cover only what the payload shows")
	}
}

func TestWriter_Err(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteErr(3, errors.New("bad input")); err != nil {
		t.Fatalf("WriteErr failed: %v", err)
	}
	want := "[(v=1 sid=3 seq=0 kind=err len=9)]\nbad input\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// ============================================================
// Reader Tests
// ============================================================

func TestReader_MinimalFrame(t *testing.T) {
	r := NewReader(strings.NewReader("[(v=1 sid=0 seq=0 kind=doc len=5)]\n[(a)]\n"))

	frame, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if frame.Version != 1 || frame.SID != 0 || frame.Seq != 0 || frame.Kind != KindDoc {
		t.Errorf("unexpected header: %+v", frame)
	}
	if string(frame.Payload) != "[(a)]" {
		t.Errorf("Payload = %q", frame.Payload)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_CRCMismatch(t *testing.T) {
	input := "[(v=1 sid=0 seq=0 kind=err len=9 crc=crc32:00000000)]\n123456789\n"

	_, err := NewReader(strings.NewReader(input)).Next()
	var mismatch *CRCMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected CRCMismatchError, got %v", err)
	}
	if mismatch.Got != 0xcbf43926 {
		t.Errorf("Got = %08x", mismatch.Got)
	}

	frame, err := NewReader(strings.NewReader(input), WithoutCRCVerification()).Next()
	if err != nil {
		t.Fatalf("Next without verification failed: %v", err)
	}
	if !frame.HasCRC() || *frame.CRC != 0 {
		t.Errorf("CRC should still be decoded: %+v", frame)
	}
}

func TestReader_BaseMismatch(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteFrame(&Frame{Kind: KindDoc, Payload: []byte("[(a)]")})
	wrong := StateHash(nanos.New())
	w.WriteFrame(&Frame{Seq: 1, Kind: KindDoc, Payload: []byte("[(b)]"), Base: &wrong})
	input := buf.String()

	_, err := NewReader(strings.NewReader(input), WithBaseVerification()).ReadAll()
	var mismatch *BaseMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected BaseMismatchError, got %v", err)
	}
	if mismatch.Seq != 1 {
		t.Errorf("Seq = %d", mismatch.Seq)
	}

	frames, err := NewReader(strings.NewReader(input)).ReadAll()
	if err != nil || len(frames) != 2 {
		t.Errorf("unverified read should pass: %d frames, %v", len(frames), err)
	}
}

func TestReader_PayloadWithNewlines(t *testing.T) {
	payload := "[(a\nb\n\nc)]"
	input := "[(kind=doc len=10)]\n" + payload + "\n[(kind=ping)]\n\n"

	frames, err := NewReader(strings.NewReader(input)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if string(frames[0].Payload) != payload {
		t.Errorf("Payload = %q", frames[0].Payload)
	}
	if frames[1].Kind != KindPing || frames[1].Payload != nil {
		t.Errorf("unexpected ping frame: %+v", frames[1])
	}
}

func TestReader_HeaderVariations(t *testing.T) {
	tests := []struct {
		name   string
		header string
		check  func(*Frame) bool
	}{
		{"numeric kind", "[(kind=1)]", func(f *Frame) bool { return f.Kind == KindErr }},
		{"comments", "[( /* hdr */ sid=4 seq=2 )]", func(f *Frame) bool { return f.SID == 4 && f.Seq == 2 }},
		{"bare crc", "[(len=0 crc='00000000')]", func(f *Frame) bool { return f.HasCRC() }},
		{"final", "[(kind=ping final=@t)]", func(f *Frame) bool { return f.Final }},
		{"defaults", "[()]", func(f *Frame) bool { return f.Version == 1 && f.Kind == KindDoc }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := NewReader(strings.NewReader(tt.header+"\n\n"), WithoutCRCVerification()).Next()
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if !tt.check(frame) {
				t.Errorf("unexpected frame: %+v", frame)
			}
		})
	}
}

func TestReader_BadHeaders(t *testing.T) {
	for _, header := range []string{
		"@frame{v=1}",
		"[(v=1",
		"[(kind=bogus)]",
		"[(seq=-1)]",
		"[(len=x)]",
		"[(crc=crc32:xyz)]",
		"[(base=sha256:00)]",
		"[(final=yes)]",
	} {
		t.Run(header, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(header + "\n")).Next()
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestReader_EOF(t *testing.T) {
	_, err := NewReader(strings.NewReader("")).Next()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_PayloadTooLarge(t *testing.T) {
	input := "[(len=999999999)]\n"
	_, err := NewReader(strings.NewReader(input), WithMaxPayload(1024)).Next()
	if err == nil {
		t.Error("expected error for large payload")
	}
}

func TestReader_TruncatedPayload(t *testing.T) {
	_, err := NewReader(strings.NewReader("[(len=20)]\nshort")).Next()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

// ============================================================
// Round-trip Tests
// ============================================================

func TestRoundtrip_AllFrameTypes(t *testing.T) {
	testCases := []struct {
		name  string
		frame Frame
	}{
		{"minimal doc", Frame{Version: 1, Kind: KindDoc, Payload: []byte("[()]")}},
		{"doc with base", Frame{Version: 1, SID: 1, Seq: 5, Kind: KindDoc, Payload: []byte("[(x=1)]"), Base: &[32]byte{0x01, 0x02}}},
		{"err", Frame{Version: 1, SID: 1, Seq: 11, Kind: KindErr, Payload: []byte("unterminated string at 1:4")}},
		{"ping", Frame{Version: 1, Kind: KindPing}},
		{"final", Frame{Version: 1, SID: 1, Seq: 999, Kind: KindDoc, Payload: []byte("[(done)]"), Final: true}},
		{"boundary in payload", Frame{Version: 1, Kind: KindErr, Payload: []byte(")] [( )]\n")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewWriterWithCRC(&buf).WriteFrame(&tc.frame); err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}

			got, err := NewReader(&buf).Next()
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if got.Version != tc.frame.Version || got.SID != tc.frame.SID || got.Seq != tc.frame.Seq {
				t.Errorf("header = %+v, want %+v", got, tc.frame)
			}
			if got.Kind != tc.frame.Kind {
				t.Errorf("Kind = %v, want %v", got.Kind, tc.frame.Kind)
			}
			if !bytes.Equal(got.Payload, tc.frame.Payload) {
				t.Errorf("Payload = %q, want %q", got.Payload, tc.frame.Payload)
			}
			if got.Final != tc.frame.Final {
				t.Errorf("Final = %v, want %v", got.Final, tc.frame.Final)
			}
			if (tc.frame.Base == nil) != (got.Base == nil) || (got.Base != nil && *got.Base != *tc.frame.Base) {
				t.Errorf("Base = %v, want %v", got.Base, tc.frame.Base)
			}
			if got.HasCRC() != (len(tc.frame.Payload) > 0) {
				t.Errorf("HasCRC = %v", got.HasCRC())
			}
		})
	}
}

// ============================================================
// Kind and Hash Tests
// ============================================================

func TestParseKind(t *testing.T) {
	for _, k := range []FrameKind{KindDoc, KindErr, KindPing} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%s) = %v, %v", k, got, ok)
		}
	}
	if _, ok := ParseKind("9"); ok {
		t.Error("expected unknown numeric kind to fail")
	}
	if FrameKind(9).String() != "unknown(9)" {
		t.Errorf("String = %s", FrameKind(9))
	}
}

func TestHash_RoundTrip(t *testing.T) {
	c, _ := nanos.Parse("[(1 2 k=v)]")
	h := StateHash(c)
	if HashToHex(h) != nanos.CanonicalHash(c) {
		t.Error("StateHash should match the canonical hash")
	}

	back, ok := HexToHash(HashToHex(h))
	if !ok || back != h {
		t.Error("hex round trip failed")
	}
	if _, ok := HexToHash("zz"); ok {
		t.Error("expected short hex to fail")
	}
	if _, ok := HexToHash(strings.Repeat("g", 64)); ok {
		t.Error("expected non-hex to fail")
	}

	fromPayload, err := PayloadHash([]byte("[( 1 2\n k = v )]"))
	if err != nil || fromPayload != h {
		t.Errorf("PayloadHash = %x, %v", fromPayload, err)
	}
}
