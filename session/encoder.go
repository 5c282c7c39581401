package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	// userFormatVersionCurrent uses 16-bit string lengths.
	userFormatVersionCurrent = 3
	// userFormatVersionShort used 8-bit string lengths and is read only.
	userFormatVersionShort   = 2

	maxNameParts = 16
)

// Encode serializes u into the current binary format.
func Encode(u *User) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(userFormatVersionCurrent)

	if err := writeString16(&buf, u.ID, "user id"); err != nil {
		return nil, err
	}
	if err := writeString16(&buf, u.Email, "email"); err != nil {
		return nil, err
	}

	if len(u.Name) > maxNameParts {
		return nil, errors.New("too many name parts")
	}
	buf.WriteByte(byte(len(u.Name)))
	for _, part := range u.Name {
		if err := writeString16(&buf, part, "name part"); err != nil {
			return nil, err
		}
	}

	if u.Verified {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, u.JoinedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, u.SavedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a record produced by [Encode] or by the previous format.
func Decode(data []byte) (*User, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	var readString func(*bytes.Reader) (string, error)
	switch version {
	case userFormatVersionCurrent:
		readString = readString16
	case userFormatVersionShort:
		readString = readShortString
	default:
		return nil, errors.New("invalid session version")
	}

	u := &User{}

	if u.ID, err = readString(reader); err != nil {
		return nil, err
	}
	if u.Email, err = readString(reader); err != nil {
		return nil, err
	}

	parts, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if parts > maxNameParts {
		return nil, errors.New("too many name parts")
	}
	u.Name = make([]string, 0, parts)
	for i := 0; i < int(parts); i++ {
		part, err := readString(reader)
		if err != nil {
			return nil, err
		}
		u.Name = append(u.Name, part)
	}

	flag, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	u.Verified = flag == 1

	if err := binary.Read(reader, binary.BigEndian, &u.JoinedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &u.SavedAt); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing session bytes")
	}

	return u, nil
}

func writeString16(buf *bytes.Buffer, s, field string) error {
	if len(s) > 65535 {
		return errors.New(field + " too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString16(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func readShortString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
