package codepoint

import (
	"testing"
)

func TestDecodeUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want Sequence
	}{
		{"empty", nil, Sequence{}},
		{"ascii", []byte("buy gold"), Sequence("buy gold")},
		{"two byte", []byte("bÜy"), Sequence("bÜy")},
		{"truncated trailing", []byte{0x62, 0xC3}, Sequence{'b', ReplacementChar}},
		{"bad lead byte", []byte{0xFF}, Sequence{ReplacementChar}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.in, UTF8)
			if string(got) != string(tt.want) {
				t.Fatalf("Decode(%q, UTF8) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeUTF16Surrogates(t *testing.T) {
	// U+1F600 GRINNING FACE = surrogate pair D83D DE00
	le := []byte{0x3D, 0xD8, 0x00, 0xDE}
	got := decodeUTF16(le, false)
	if len(got) != 1 || got[0] != 0x1F600 {
		t.Fatalf("decodeUTF16(le) = %v, want [U+1F600]", got)
	}

	be := []byte{0xD8, 0x3D, 0xDE, 0x00}
	got = decodeUTF16(be, true)
	if len(got) != 1 || got[0] != 0x1F600 {
		t.Fatalf("decodeUTF16(be) = %v, want [U+1F600]", got)
	}
}

func TestDecodeUTF16UnpairedHighSurrogate(t *testing.T) {
	// lone high surrogate followed by an ordinary unit
	b := []byte{0x3D, 0xD8, 0x41, 0x00}
	got := decodeUTF16(b, false)
	want := Sequence{ReplacementChar, 'A'}
	if string(got) != string(want) {
		t.Fatalf("decodeUTF16 = %v, want %v", got, want)
	}
}

func TestDecodeUTF32SkipsZero(t *testing.T) {
	b := []byte{0x00, 0x00, 0x00, 0x00, 0x41, 0x00, 0x00, 0x00}
	got := decodeUTF32(b, false)
	if string(got) != "A" {
		t.Fatalf("decodeUTF32 = %v, want [A]", got)
	}
}

func TestDecodeShorterThanMinimumUnit(t *testing.T) {
	if got := Decode([]byte{0x41}, UTF16LE); len(got) != 0 {
		t.Fatalf("Decode(1 byte, UTF16LE) = %v, want empty", got)
	}
	if got := Decode([]byte{0x41, 0x00, 0x00}, UTF32LE); len(got) != 0 {
		t.Fatalf("Decode(3 bytes, UTF32LE) = %v, want empty", got)
	}
}

func TestDecodeUnknownTagsEachEncodingOnce(t *testing.T) {
	got := Decode([]byte("hi"), Unknown)
	s := got.String()
	for _, enc := range unknownOrder {
		tag := enc.String()
		n := 0
		for i := 0; i+len(tag) <= len(s); i++ {
			if s[i:i+len(tag)] == tag {
				n++
			}
		}
		if n != 1 {
			t.Fatalf("tag %q appears %d times in %q, want exactly 1", tag, n, s)
		}
	}
}

func TestDecodeBoundedByInputLength(t *testing.T) {
	for _, enc := range []Encoding{UTF8, UTF16LE, UTF16BE, UTF32LE, UTF32BE} {
		in := []byte("the quick brown fox jumps over the lazy dog")
		got := Decode(in, enc)
		if len(got) > len(in) {
			t.Fatalf("encoding %v: |decode(b)| = %d > |b| = %d", enc, len(got), len(in))
		}
	}
}
