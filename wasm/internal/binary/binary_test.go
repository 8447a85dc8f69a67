package binary

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReaderReadByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	for i, want := range data {
		if r.Position() != i {
			t.Errorf("position before read %d: got %d, want %d", i, r.Position(), i)
		}
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte %d: %v", i, err)
		}
		if b != want {
			t.Errorf("ReadByte %d: got 0x%02x, want 0x%02x", i, b, want)
		}
	}

	if !r.EOF() {
		t.Error("expected EOF after consuming all bytes")
	}
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReaderReadBytesAliases(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	r := NewReader(data)

	got, err := r.ReadBytes(3)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("ReadBytes: got %v", got)
	}
	data[0] = 0xAA
	if got[0] != 0xAA {
		t.Error("ReadBytes should return a view into the source buffer")
	}

	if _, err := r.ReadBytes(10); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("failed read must not consume: Len = %d, want 2", r.Len())
	}
}

func TestReaderPositionWithBase(t *testing.T) {
	r := NewReaderAt([]byte{0x01, 0x02}, 100)
	if r.Position() != 100 {
		t.Errorf("Position = %d, want 100", r.Position())
	}
	r.ReadByte()
	err := r.WrapError("code", errors.New("boom"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Position != 101 {
		t.Errorf("ParseError.Position = %d, want 101", pe.Position)
	}
}

func TestReaderReadU32(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		got, err := NewReader(tt.encoded).ReadU32()
		if err != nil {
			t.Errorf("ReadU32(%v): %v", tt.encoded, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadU32(%v) = %d, want %d", tt.encoded, got, tt.want)
		}
	}
}

func TestReaderLEBErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(*Reader) error
		want error
	}{
		{
			name: "u32 truncated",
			data: []byte{0x80},
			read: func(r *Reader) error { _, err := r.ReadU32(); return err },
			want: io.ErrUnexpectedEOF,
		},
		{
			name: "u32 overflow",
			data: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
			read: func(r *Reader) error { _, err := r.ReadU32(); return err },
			want: ErrOverflow,
		},
		{
			name: "u32 high bits in last byte",
			data: []byte{0x80, 0x80, 0x80, 0x80, 0x70},
			read: func(r *Reader) error { _, err := r.ReadU32(); return err },
			want: ErrOverflow,
		},
		{
			name: "u64 high bits in last byte",
			data: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x02},
			read: func(r *Reader) error { _, err := r.ReadU64(); return err },
			want: ErrOverflow,
		},
		{
			name: "u64 overflow",
			data: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
			read: func(r *Reader) error { _, err := r.ReadU64(); return err },
			want: ErrOverflow,
		},
		{
			name: "s32 overflow",
			data: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
			read: func(r *Reader) error { _, err := r.ReadS32(); return err },
			want: ErrOverflow,
		},
		{
			name: "s64 truncated",
			data: []byte{0xff},
			read: func(r *Reader) error { _, err := r.ReadS64(); return err },
			want: io.ErrUnexpectedEOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReaderReadSigned(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    int64
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, -1},
		{[]byte{0x40}, -64},
		{[]byte{0x80, 0x7f}, -128},
		{[]byte{0x3f}, 63},
	}
	for _, tt := range tests {
		got, err := NewReader(tt.encoded).ReadS64()
		if err != nil {
			t.Fatalf("ReadS64(%v): %v", tt.encoded, err)
		}
		if got != tt.want {
			t.Errorf("ReadS64(%v) = %d, want %d", tt.encoded, got, tt.want)
		}
		got32, err := NewReader(tt.encoded).ReadS32()
		if err != nil {
			t.Fatalf("ReadS32(%v): %v", tt.encoded, err)
		}
		if int64(got32) != tt.want {
			t.Errorf("ReadS32(%v) = %d, want %d", tt.encoded, got32, tt.want)
		}
	}
}

func TestReaderReadName(t *testing.T) {
	r := NewReader([]byte{0x05, 'h', 'e', 'l', 'l', 'o'})
	name, err := r.ReadName()
	if err != nil {
		t.Fatalf("ReadName: %v", err)
	}
	if name != "hello" {
		t.Errorf("ReadName = %q, want hello", name)
	}

	if _, err := NewReader([]byte{0x02, 0xff, 0xfe}).ReadName(); err == nil {
		t.Error("expected error for invalid UTF-8")
	}
	if _, err := NewReader([]byte{0x05, 'a'}).ReadName(); err == nil {
		t.Error("expected error for truncated name")
	}
}

func TestReaderReadRemaining(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03})
	r.ReadByte()
	if got := r.ReadRemaining(); !bytes.Equal(got, []byte{0x02, 0x03}) {
		t.Errorf("ReadRemaining = %v", got)
	}
	if !r.EOF() {
		t.Error("expected EOF after ReadRemaining")
	}
}

func TestParseErrorFormatting(t *testing.T) {
	inner := errors.New("some error")
	if got := (&ParseError{Position: 5, Err: inner}).Error(); got != "wasm: at position 5: some error" {
		t.Errorf("Error() = %q", got)
	}
	pe := &ParseError{Position: 2, Section: "header", Err: inner}
	if got := pe.Error(); got != "wasm: header at position 2: some error" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(pe, inner) {
		t.Error("ParseError should unwrap to its cause")
	}
}

func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteU32LE(0x6D736100)
	w.WriteU32(624485)
	w.WriteU64(1 << 40)
	w.WriteS64(-128)
	w.WriteS64(-1)
	w.WriteName("env")
	w.Byte(0x0B)

	r := NewReader(w.Bytes())
	if v, _ := r.ReadU32LE(); v != 0x6D736100 {
		t.Errorf("U32LE = 0x%x", v)
	}
	if v, _ := r.ReadU32(); v != 624485 {
		t.Errorf("U32 = %d", v)
	}
	if v, _ := r.ReadU64(); v != 1<<40 {
		t.Errorf("U64 = %d", v)
	}
	if v, _ := r.ReadS32(); v != -128 {
		t.Errorf("S32 = %d", v)
	}
	if v, _ := r.ReadS64(); v != -1 {
		t.Errorf("S64 = %d", v)
	}
	if v, _ := r.ReadName(); v != "env" {
		t.Errorf("Name = %q", v)
	}
	if b, _ := r.ReadByte(); b != 0x0B {
		t.Errorf("Byte = 0x%02x", b)
	}
	if !r.EOF() {
		t.Error("expected EOF")
	}
}
