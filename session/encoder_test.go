package session

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestDecodeShortLengthFormat(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(userFormatVersionShort)
	buf.WriteByte(2)
	buf.WriteString("u1")
	buf.WriteByte(7)
	buf.WriteString("a@x.com")
	buf.WriteByte(1)
	buf.WriteByte(4)
	buf.WriteString("Amer")
	buf.WriteByte(1)
	_ = binary.Write(&buf, binary.BigEndian, int64(100))
	_ = binary.Write(&buf, binary.BigEndian, int64(200))

	u, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode short format: %v", err)
	}
	if !u.Verified || u.ID != "u1" || u.Email != "a@x.com" || u.Name[0] != "Amer" || u.JoinedAt != 100 || u.SavedAt != 200 {
		t.Fatalf("unexpected decode: %+v", u)
	}
}

func TestEncodeLongFields(t *testing.T) {
	u := testUser()
	u.Email = strings.Repeat("e", 256) + "@x.com"
	u.Name = []string{strings.Repeat("a", 256), "Saleh"}

	data, err := Encode(u)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Email != u.Email || got.Name[0] != u.Name[0] || got.Name[1] != "Saleh" {
		t.Fatalf("long fields did not survive: %+v", got)
	}
}

func TestDecodeRejectsTruncatedAndUnknownVersions(t *testing.T) {
	data, err := Encode(testUser())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for i := 0; i < len(data); i++ {
		if _, err := Decode(data[:i]); err == nil {
			t.Fatalf("expected error decoding %d-byte prefix", i)
		}
	}

	bad := append([]byte{}, data...)
	bad[0] = 9
	if _, err := Decode(bad); err == nil {
		t.Fatal("expected unknown version to fail")
	}

	if _, err := Decode(append(data, 0)); err == nil {
		t.Fatal("expected trailing bytes to fail")
	}
}

func TestEncodeRejectsOversizedFields(t *testing.T) {
	u := testUser()
	u.Email = strings.Repeat("e", 65536)
	if _, err := Encode(u); err == nil {
		t.Fatal("expected oversized email to fail")
	}

	u = testUser()
	u.Name = make([]string, maxNameParts+1)
	if _, err := Encode(u); err == nil {
		t.Fatal("expected too many name parts to fail")
	}
}

func FuzzDecode(f *testing.F) {
	seed, _ := Encode(testUser())
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{userFormatVersionCurrent, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		u, err := Decode(data)
		if err != nil {
			return
		}
		if _, err := Encode(u); err != nil {
			t.Fatalf("decoded record failed to re-encode: %v", err)
		}
	})
}
