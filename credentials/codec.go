package credentials

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const recordFormatVersionV1 = 1

const maxNameParts = 16

func encodeRecord(rec Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordFormatVersionV1)
	for _, s := range []string{rec.ID, rec.Email, rec.PasswordHash} {
		if err := writeString16(&buf, s); err != nil {
			return nil, err
		}
	}

	if len(rec.Name) > maxNameParts {
		return nil, errors.New("too many name parts")
	}
	buf.WriteByte(byte(len(rec.Name)))
	for _, part := range rec.Name {
		if err := writeString16(&buf, part); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, rec.JoinedAt.UnixMilli()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (Record, error) {
	var rec Record
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return rec, err
	}
	if version != recordFormatVersionV1 {
		return rec, errors.New("invalid account record version")
	}

	for _, dst := range []*string{&rec.ID, &rec.Email, &rec.PasswordHash} {
		if *dst, err = readString16(reader); err != nil {
			return rec, err
		}
	}

	parts, err := reader.ReadByte()
	if err != nil {
		return rec, err
	}
	if parts > maxNameParts {
		return rec, errors.New("too many name parts")
	}
	rec.Name = make([]string, 0, parts)
	for i := 0; i < int(parts); i++ {
		part, err := readString16(reader)
		if err != nil {
			return rec, err
		}
		rec.Name = append(rec.Name, part)
	}

	var joined int64
	if err := binary.Read(reader, binary.BigEndian, &joined); err != nil {
		return rec, err
	}
	rec.JoinedAt = time.UnixMilli(joined).UTC()
	return rec, nil
}

func writeString16(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("account field too long")
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
